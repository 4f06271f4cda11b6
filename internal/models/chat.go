package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat message speakers.
const (
	ChatRoleUser  = "user"
	ChatRoleTutor = "tutor"
)

type ChatMessage struct {
	Role      string    `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Chat is a tutoring conversation between a user and the AI tutor.
type Chat struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	Title     string             `json:"title" bson:"title"`
	Messages  []ChatMessage      `json:"messages,omitempty" bson:"messages"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

type ChatMessageRequest struct {
	Message string `json:"message" validate:"required,notblank,max=4000"`
}
