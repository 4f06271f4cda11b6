package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account and a node of the follow graph.
type User struct {
	ID             primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name           string               `json:"name" bson:"name"`
	Email          string               `json:"email" bson:"email"`
	Password       string               `json:"-" bson:"password"`
	Role           Role                 `json:"role" bson:"role"`
	ProfilePicture string               `json:"profile_picture,omitempty" bson:"profile_picture,omitempty"`
	FirebaseUID    string               `json:"-" bson:"firebase_uid,omitempty"`
	Followers      []primitive.ObjectID `json:"followers" bson:"followers"`
	Following      []primitive.ObjectID `json:"following" bson:"following"`
	CreatedAt      time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at" bson:"updated_at"`
}

// UserCompact is the public card shown next to authored content.
type UserCompact struct {
	ID             primitive.ObjectID `json:"id"`
	Name           string             `json:"name"`
	Role           Role               `json:"role"`
	ProfilePicture string             `json:"profile_picture,omitempty"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:             u.ID,
		Name:           u.Name,
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
	}
}

// Sanitized returns a copy without the password hash.
func (u User) Sanitized() User {
	u.Password = ""
	return u
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,notblank,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=student teacher"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateUserRequest struct {
	Name string `json:"name" validate:"required,notblank,min=2,max=50"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims.
// The user id travels in RegisteredClaims.Subject.
type JwtCustomClaims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}
