package models

import "time"

// RevokedToken is a deny-list entry for a logged-out bearer token. Tokens are
// keyed by their SHA-256 digest and expire with the token itself.
type RevokedToken struct {
	ID        uint      `json:"-" bson:"-" gorm:"primaryKey"`
	TokenHash string    `json:"-" bson:"_id" gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
