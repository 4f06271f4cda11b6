package repositories

import (
	"context"
	"time"

	"github.com/anonto42/studynest/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// NoteRepository defines the interface for note data operations
type NoteRepository interface {
	CreateNote(ctx context.Context, note *models.Note) error
	GetNotes(ctx context.Context, userID primitive.ObjectID) ([]models.Note, error)
	GetNote(ctx context.Context, id, userID primitive.ObjectID) (*models.Note, error)
	UpdateNote(ctx context.Context, id, userID primitive.ObjectID, req models.NoteRequest, file *models.Attachment) (*models.Note, error)
	DeleteNote(ctx context.Context, id, userID primitive.ObjectID) error
	DeleteNotesByUser(ctx context.Context, userID primitive.ObjectID) error
}

// MongoNoteRepository implements NoteRepository for MongoDB
type MongoNoteRepository struct {
	store ownedStore[models.Note]
}

func NewMongoNoteRepository(db *mongo.Database) *MongoNoteRepository {
	return &MongoNoteRepository{store: newOwnedStore[models.Note](db, "notes")}
}

func (r *MongoNoteRepository) CreateNote(ctx context.Context, note *models.Note) error {
	note.ID = primitive.NewObjectID()
	note.CreatedAt = time.Now()
	note.UpdatedAt = note.CreatedAt
	return r.store.insert(ctx, note)
}

func (r *MongoNoteRepository) GetNotes(ctx context.Context, userID primitive.ObjectID) ([]models.Note, error) {
	return r.store.list(ctx, userID, nil)
}

func (r *MongoNoteRepository) GetNote(ctx context.Context, id, userID primitive.ObjectID) (*models.Note, error) {
	return r.store.get(ctx, id, userID)
}

// UpdateNote replaces the editable fields. A non-nil file replaces the stored attachment.
func (r *MongoNoteRepository) UpdateNote(ctx context.Context, id, userID primitive.ObjectID, req models.NoteRequest, file *models.Attachment) (*models.Note, error) {
	set := bson.M{
		"title":      req.Title,
		"content":    req.Content,
		"tags":       req.Tags,
		"updated_at": time.Now(),
	}
	if file != nil {
		set["file_url"] = file.FileURL
		set["file_name"] = file.FileName
		set["file_mime_type"] = file.FileMimeType
	}
	return r.store.update(ctx, id, userID, bson.M{"$set": set})
}

func (r *MongoNoteRepository) DeleteNote(ctx context.Context, id, userID primitive.ObjectID) error {
	return r.store.delete(ctx, id, userID)
}

func (r *MongoNoteRepository) DeleteNotesByUser(ctx context.Context, userID primitive.ObjectID) error {
	return r.store.deleteAllOwnedBy(ctx, userID)
}
