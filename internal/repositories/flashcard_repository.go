package repositories

import (
	"context"
	"time"

	"github.com/anonto42/studynest/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// FlashcardRepository defines the interface for flashcard data operations
type FlashcardRepository interface {
	CreateFlashcard(ctx context.Context, card *models.Flashcard) error
	CreateFlashcards(ctx context.Context, cards []models.Flashcard) error
	GetFlashcards(ctx context.Context, userID primitive.ObjectID) ([]models.Flashcard, error)
	UpdateFlashcard(ctx context.Context, id, userID primitive.ObjectID, req models.FlashcardRequest) (*models.Flashcard, error)
	DeleteFlashcard(ctx context.Context, id, userID primitive.ObjectID) error
	DeleteFlashcardsByUser(ctx context.Context, userID primitive.ObjectID) error
}

// MongoFlashcardRepository implements FlashcardRepository for MongoDB
type MongoFlashcardRepository struct {
	store ownedStore[models.Flashcard]
}

func NewMongoFlashcardRepository(db *mongo.Database) *MongoFlashcardRepository {
	return &MongoFlashcardRepository{store: newOwnedStore[models.Flashcard](db, "flashcards")}
}

func (r *MongoFlashcardRepository) CreateFlashcard(ctx context.Context, card *models.Flashcard) error {
	card.ID = primitive.NewObjectID()
	card.CreatedAt = time.Now()
	card.UpdatedAt = card.CreatedAt
	return r.store.insert(ctx, card)
}

// CreateFlashcards stores a generated deck in one bulk insert. Ids and
// timestamps are assigned in place.
func (r *MongoFlashcardRepository) CreateFlashcards(ctx context.Context, cards []models.Flashcard) error {
	if len(cards) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]interface{}, len(cards))
	for i := range cards {
		cards[i].ID = primitive.NewObjectID()
		cards[i].CreatedAt = now
		cards[i].UpdatedAt = now
		docs[i] = cards[i]
	}
	_, err := r.store.collection.InsertMany(ctx, docs)
	return err
}

func (r *MongoFlashcardRepository) GetFlashcards(ctx context.Context, userID primitive.ObjectID) ([]models.Flashcard, error) {
	return r.store.list(ctx, userID, nil)
}

func (r *MongoFlashcardRepository) UpdateFlashcard(ctx context.Context, id, userID primitive.ObjectID, req models.FlashcardRequest) (*models.Flashcard, error) {
	return r.store.update(ctx, id, userID, bson.M{"$set": bson.M{
		"question":   req.Question,
		"answer":     req.Answer,
		"topic":      req.Topic,
		"updated_at": time.Now(),
	}})
}

func (r *MongoFlashcardRepository) DeleteFlashcard(ctx context.Context, id, userID primitive.ObjectID) error {
	return r.store.delete(ctx, id, userID)
}

func (r *MongoFlashcardRepository) DeleteFlashcardsByUser(ctx context.Context, userID primitive.ObjectID) error {
	return r.store.deleteAllOwnedBy(ctx, userID)
}
