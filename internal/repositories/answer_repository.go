package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/studynest/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AnswerRepository defines the interface for forum answer operations
type AnswerRepository interface {
	CreateAnswer(ctx context.Context, answer *models.Answer) error
	GetAnswerByID(ctx context.Context, id primitive.ObjectID) (*models.Answer, error)
	GetAnswersByQuestion(ctx context.Context, questionID primitive.ObjectID) ([]models.Answer, error)
	DeleteAnswer(ctx context.Context, id primitive.ObjectID) error
	DeleteAnswersByQuestion(ctx context.Context, questionID primitive.ObjectID) (int64, error)
	SetBestAnswer(ctx context.Context, questionID, answerID primitive.ObjectID) error
}

// MongoAnswerRepository implements AnswerRepository for MongoDB
type MongoAnswerRepository struct {
	collection *mongo.Collection
}

// NewMongoAnswerRepository creates a new MongoAnswerRepository
func NewMongoAnswerRepository(db *mongo.Database) *MongoAnswerRepository {
	return &MongoAnswerRepository{collection: db.Collection("answers")}
}

func (r *MongoAnswerRepository) CreateAnswer(ctx context.Context, answer *models.Answer) error {
	answer.ID = primitive.NewObjectID()
	answer.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, answer)
	return err
}

func (r *MongoAnswerRepository) GetAnswerByID(ctx context.Context, id primitive.ObjectID) (*models.Answer, error) {
	var answer models.Answer
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&answer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &answer, nil
}

// GetAnswersByQuestion returns the best answer first, then oldest first.
func (r *MongoAnswerRepository) GetAnswersByQuestion(ctx context.Context, questionID primitive.ObjectID) ([]models.Answer, error) {
	findOptions := options.Find().SetSort(bson.D{
		{Key: "is_best", Value: -1},
		{Key: "created_at", Value: 1},
	})
	cursor, err := r.collection.Find(ctx, bson.M{"question_id": questionID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	answers := []models.Answer{}
	if err = cursor.All(ctx, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// DeleteAnswer deletes a human-authored answer. AI answers never match.
func (r *MongoAnswerRepository) DeleteAnswer(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "role": bson.M{"$ne": models.AnswerRoleAI}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAnswersByQuestion removes every answer of a question, AI answers included.
func (r *MongoAnswerRepository) DeleteAnswersByQuestion(ctx context.Context, questionID primitive.ObjectID) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"question_id": questionID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// SetBestAnswer flags answerID as best and clears the flag on its siblings.
func (r *MongoAnswerRepository) SetBestAnswer(ctx context.Context, questionID, answerID primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": answerID, "question_id": questionID},
		bson.M{"$set": bson.M{"is_best": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	_, err = r.collection.UpdateMany(ctx,
		bson.M{"question_id": questionID, "_id": bson.M{"$ne": answerID}, "is_best": true},
		bson.M{"$set": bson.M{"is_best": false}},
	)
	return err
}
