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

// OutboxRepository persists fan-out events until a worker has delivered them.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event models.FanoutEvent) error
	Claim(ctx context.Context, lease time.Duration) (*models.OutboxEvent, error)
	Complete(ctx context.Context, id primitive.ObjectID) error
	Release(ctx context.Context, id primitive.ObjectID, cause error) error
	CountPending(ctx context.Context) (int64, error)
}

// MongoOutboxRepository implements OutboxRepository for MongoDB
type MongoOutboxRepository struct {
	collection *mongo.Collection
}

func NewMongoOutboxRepository(db *mongo.Database) *MongoOutboxRepository {
	return &MongoOutboxRepository{collection: db.Collection("outbox")}
}

func (r *MongoOutboxRepository) Enqueue(ctx context.Context, event models.FanoutEvent) error {
	_, err := r.collection.InsertOne(ctx, models.OutboxEvent{
		ID:        primitive.NewObjectID(),
		Event:     event,
		Status:    models.OutboxStatusPending,
		CreatedAt: time.Now(),
	})
	return err
}

// Claim leases the oldest pending event, or an event whose previous lease
// expired. It returns nil when nothing is claimable.
func (r *MongoOutboxRepository) Claim(ctx context.Context, lease time.Duration) (*models.OutboxEvent, error) {
	now := time.Now()
	filter := bson.M{"$or": bson.A{
		bson.M{"status": models.OutboxStatusPending},
		bson.M{"status": models.OutboxStatusProcessing, "claimed_at": bson.M{"$lt": now.Add(-lease)}},
	}}
	update := bson.M{
		"$set": bson.M{"status": models.OutboxStatusProcessing, "claimed_at": now},
		"$inc": bson.M{"attempts": 1},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetReturnDocument(options.After)

	var event models.OutboxEvent
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&event); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// Complete removes a delivered event.
func (r *MongoOutboxRepository) Complete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Release returns a failed event to the pending state with its last error.
func (r *MongoOutboxRepository) Release(ctx context.Context, id primitive.ObjectID, cause error) error {
	set := bson.M{"status": models.OutboxStatusPending}
	if cause != nil {
		set["last_error"] = cause.Error()
	}
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set, "$unset": bson.M{"claimed_at": ""}},
	)
	return err
}

// CountPending counts undelivered events, including leased ones.
func (r *MongoOutboxRepository) CountPending(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
