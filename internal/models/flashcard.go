package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Flashcard is one question/answer study card.
type Flashcard struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID      primitive.ObjectID `json:"user_id" bson:"user_id"`
	Question    string             `json:"question" bson:"question"`
	Answer      string             `json:"answer" bson:"answer"`
	Topic       string             `json:"topic,omitempty" bson:"topic,omitempty"`
	AIGenerated bool               `json:"ai_generated" bson:"ai_generated"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

type FlashcardRequest struct {
	Question string `json:"question" validate:"required,notblank,max=2000"`
	Answer   string `json:"answer" validate:"required,notblank,max=5000"`
	Topic    string `json:"topic" validate:"max=200"`
}

type GenerateFlashcardsRequest struct {
	Topic string `json:"topic" validate:"required,notblank,max=200"`
	Count int    `json:"count" validate:"omitempty,min=1,max=20"`
}
