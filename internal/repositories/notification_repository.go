package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/studynest/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	InsertMany(ctx context.Context, notifications []models.Notification) (int, error)
	ListRecent(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) (bool, error)
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

// MongoNotificationRepository implements NotificationRepository for MongoDB
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection("notifications")}
}

// InsertMany writes the batch in one unordered bulk insert and returns how
// many documents were inserted. Documents rejected by the unique
// {user_id, event_id} index were already delivered by an earlier attempt, so
// a batch failing only on duplicates is not an error.
func (r *MongoNotificationRepository) InsertMany(ctx context.Context, notifications []models.Notification) (int, error) {
	if len(notifications) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, len(notifications))
	for i := range notifications {
		if notifications[i].ID.IsZero() {
			notifications[i].ID = primitive.NewObjectID()
		}
		docs[i] = notifications[i]
	}

	res, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(res.InsertedIDs), nil
	}
	if dups, ok := duplicateKeyFailures(err); ok {
		return len(notifications) - dups, nil
	}
	// An unordered bulk insert writes every document without a write error.
	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		return len(notifications) - len(bulkErr.WriteErrors), err
	}
	return 0, err
}

// ListRecent returns at most limit notifications for the user, newest first.
func (r *MongoNotificationRepository) ListRecent(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// CountUnread counts every unread notification of the user, unbounded by any page size.
func (r *MongoNotificationRepository) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"user_id": userID, "is_read": false})
}

// MarkRead flips is_read on a notification owned by userID. It reports
// whether a document changed; a missing, foreign or already read
// notification changes nothing and is not an error.
func (r *MongoNotificationRepository) MarkRead(ctx context.Context, id, userID primitive.ObjectID) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoNotificationRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"user_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoNotificationRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
