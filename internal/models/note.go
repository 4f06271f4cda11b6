package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Note is a user's study note with an optional attached file.
type Note struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID     primitive.ObjectID `json:"user_id" bson:"user_id"`
	Title      string             `json:"title" bson:"title"`
	Content    string             `json:"content" bson:"content"`
	Tags       []string           `json:"tags,omitempty" bson:"tags,omitempty"`
	Attachment `bson:",inline"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// Attachment describes an uploaded file held by the storage backend.
type Attachment struct {
	FileURL      string `json:"file_url,omitempty" bson:"file_url,omitempty"`
	FileName     string `json:"file_name,omitempty" bson:"file_name,omitempty"`
	FileMimeType string `json:"file_mime_type,omitempty" bson:"file_mime_type,omitempty"`
}

// NoteRequest is accepted as JSON or as multipart form fields.
type NoteRequest struct {
	Title   string   `json:"title" form:"title" validate:"required,notblank,max=200"`
	Content string   `json:"content" form:"content" validate:"max=100000"`
	Tags    []string `json:"tags" form:"tags" validate:"max=20,dive,max=40"`
}
