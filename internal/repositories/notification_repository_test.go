package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func batchFor(event primitive.ObjectID, users ...primitive.ObjectID) []models.Notification {
	out := make([]models.Notification, len(users))
	for i, u := range users {
		out[i] = models.Notification{
			UserID:    u,
			EventID:   event,
			Title:     "New Question",
			Message:   "Ada asked a new question",
			Type:      models.NotificationTypeQuestion,
			CreatedAt: time.Now(),
		}
	}
	return out
}

func TestNotificationRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("insert many", func(mt *mtest.T) {
		repo := &MongoNotificationRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		batch := batchFor(primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID())
		n, err := repo.InsertMany(ctx, batch)
		require.NoError(mt, err)
		assert.Equal(mt, 2, n)
		for _, notification := range batch {
			assert.False(mt, notification.ID.IsZero())
		}
	})

	mt.Run("insert many skips already delivered", func(mt *mtest.T) {
		repo := &MongoNotificationRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   1,
			Code:    11000,
			Message: "E11000 duplicate key error collection: notifications index: user_id_1_event_id_1",
		}))

		batch := batchFor(primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID())
		n, err := repo.InsertMany(ctx, batch)
		require.NoError(mt, err)
		assert.Equal(mt, 2, n)
	})

	mt.Run("insert many surfaces other write errors", func(mt *mtest.T) {
		repo := &MongoNotificationRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    121,
			Message: "Document failed validation",
		}))

		n, err := repo.InsertMany(ctx, batchFor(primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()))
		assert.Error(mt, err)
		assert.Equal(mt, 1, n, "only documents without a write error count as written")
	})

	mt.Run("insert many with mixed write errors", func(mt *mtest.T) {
		repo := &MongoNotificationRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(
			mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"},
			mtest.WriteError{Index: 2, Code: 121, Message: "Document failed validation"},
		))

		n, err := repo.InsertMany(ctx, batchFor(primitive.NewObjectID(),
			primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()))
		assert.Error(mt, err)
		assert.Equal(mt, 2, n)
	})

	mt.Run("insert many with empty batch", func(mt *mtest.T) {
		repo := &MongoNotificationRepository{collection: mt.Coll}

		n, err := repo.InsertMany(ctx, nil)
		require.NoError(mt, err)
		assert.Zero(mt, n)
	})

	mt.Run("list recent", func(mt *mtest.T) {
		repo := &MongoNotificationRepository{collection: mt.Coll}
		userID := primitive.NewObjectID()
		questionID := primitive.NewObjectID()
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "user_id", Value: userID},
				{Key: "event_id", Value: primitive.NewObjectID()},
				{Key: "title", Value: "New Question"},
				{Key: "message", Value: "Ada asked a new question"},
				{Key: "type", Value: "question"},
				{Key: "question_id", Value: questionID},
				{Key: "is_read", Value: false},
				{Key: "created_at", Value: time.Now()},
			},
		))

		notifications, err := repo.ListRecent(ctx, userID, 50)
		require.NoError(mt, err)
		require.Len(mt, notifications, 1)
		assert.Equal(mt, models.NotificationTypeQuestion, notifications[0].Type)
		require.NotNil(mt, notifications[0].QuestionID)
		assert.Equal(mt, questionID, *notifications[0].QuestionID)
	})

	mt.Run("list recent returns empty slice", func(mt *mtest.T) {
		repo := &MongoNotificationRepository{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		notifications, err := repo.ListRecent(ctx, primitive.NewObjectID(), 50)
		require.NoError(mt, err)
		assert.NotNil(mt, notifications)
		assert.Empty(mt, notifications)
	})

	mt.Run("count unread", func(mt *mtest.T) {
		repo := &MongoNotificationRepository{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(60)}}))

		n, err := repo.CountUnread(ctx, primitive.NewObjectID())
		require.NoError(mt, err)
		assert.EqualValues(mt, 60, n)
	})

	mt.Run("mark read", func(mt *mtest.T) {
		repo := &MongoNotificationRepository{collection: mt.Coll}
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})

		changed, err := repo.MarkRead(ctx, primitive.NewObjectID(), primitive.NewObjectID())
		require.NoError(mt, err)
		assert.True(mt, changed)
	})

	mt.Run("mark read of foreign notification is a no-op", func(mt *mtest.T) {
		repo := &MongoNotificationRepository{collection: mt.Coll}
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})

		changed, err := repo.MarkRead(ctx, primitive.NewObjectID(), primitive.NewObjectID())
		require.NoError(mt, err)
		assert.False(mt, changed)
	})
}
