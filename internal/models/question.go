package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Question is a forum root post, owned by the asking user.
type Question struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Text      string             `json:"text" bson:"text"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// CreateQuestionRequest defines the request body for asking a question
type CreateQuestionRequest struct {
	Text string `json:"text" validate:"required,notblank,max=5000"`
}

// Answer is a reply to a Question. UserID is nil for AI-authored answers.
type Answer struct {
	ID         primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	QuestionID primitive.ObjectID  `json:"question_id" bson:"question_id"`
	UserID     *primitive.ObjectID `json:"user_id" bson:"user_id"`
	Role       AnswerRole          `json:"role" bson:"role"`
	Content    string              `json:"content" bson:"content"`
	IsBest     bool                `json:"is_best" bson:"is_best"`
	CreatedAt  time.Time           `json:"created_at" bson:"created_at"`
}

// OwnedBy reports whether a human user authored the answer.
func (a *Answer) OwnedBy(userID primitive.ObjectID) bool {
	return a.Role != AnswerRoleAI && a.UserID != nil && *a.UserID == userID
}

// CreateAnswerRequest defines the request body for answering a question
type CreateAnswerRequest struct {
	Content string `json:"content" validate:"required,notblank,max=10000"`
}
