package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType is the closed set of events that fan out to users.
type NotificationType string

const (
	NotificationTypeQuestion NotificationType = "question"
	NotificationTypeAnswer   NotificationType = "answer"
)

func (t NotificationType) Valid() bool {
	return t == NotificationTypeQuestion || t == NotificationTypeAnswer
}

// Notification is one materialized copy of a forum event for one recipient.
type Notification struct {
	ID         primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	UserID     primitive.ObjectID  `json:"user_id" bson:"user_id"`
	EventID    primitive.ObjectID  `json:"-" bson:"event_id"`
	Title      string              `json:"title" bson:"title"`
	Message    string              `json:"message" bson:"message"`
	Type       NotificationType    `json:"type" bson:"type"`
	QuestionID *primitive.ObjectID `json:"question_id,omitempty" bson:"question_id,omitempty"`
	AnswerID   *primitive.ObjectID `json:"answer_id,omitempty" bson:"answer_id,omitempty"`
	IsRead     bool                `json:"is_read" bson:"is_read"`
	CreatedAt  time.Time           `json:"created_at" bson:"created_at"`
}

// FanoutEvent is a forum event that must reach every user but its actor.
type FanoutEvent struct {
	ID         primitive.ObjectID  `json:"id" bson:"id"`
	Type       NotificationType    `json:"type" bson:"type"`
	ActorID    primitive.ObjectID  `json:"actor_id" bson:"actor_id"`
	ActorName  string              `json:"actor_name" bson:"actor_name"`
	QuestionID *primitive.ObjectID `json:"question_id,omitempty" bson:"question_id,omitempty"`
	AnswerID   *primitive.ObjectID `json:"answer_id,omitempty" bson:"answer_id,omitempty"`
	OccurredAt time.Time           `json:"occurred_at" bson:"occurred_at"`
}

// Outbox event states.
const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessing = "processing"
)

// OutboxEvent is a pending fan-out persisted after its forum write.
type OutboxEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Event     FanoutEvent        `bson:"event"`
	Status    string             `bson:"status"`
	Attempts  int                `bson:"attempts"`
	LastError string             `bson:"last_error,omitempty"`
	ClaimedAt *time.Time         `bson:"claimed_at,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}
