package repositories

import (
	"context"
	"time"

	"github.com/anonto42/studynest/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChatRepository defines the interface for tutor conversation operations
type ChatRepository interface {
	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChats(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error)
	GetChat(ctx context.Context, id, userID primitive.ObjectID) (*models.Chat, error)
	AppendMessages(ctx context.Context, id, userID primitive.ObjectID, messages ...models.ChatMessage) (*models.Chat, error)
	DeleteChat(ctx context.Context, id, userID primitive.ObjectID) error
	DeleteChatsByUser(ctx context.Context, userID primitive.ObjectID) error
}

// MongoChatRepository implements ChatRepository for MongoDB
type MongoChatRepository struct {
	store ownedStore[models.Chat]
}

func NewMongoChatRepository(db *mongo.Database) *MongoChatRepository {
	return &MongoChatRepository{store: newOwnedStore[models.Chat](db, "chats")}
}

func (r *MongoChatRepository) CreateChat(ctx context.Context, chat *models.Chat) error {
	chat.ID = primitive.NewObjectID()
	chat.CreatedAt = time.Now()
	chat.UpdatedAt = chat.CreatedAt
	if chat.Messages == nil {
		chat.Messages = []models.ChatMessage{}
	}
	return r.store.insert(ctx, chat)
}

// GetChats lists conversations without their message history, most recently active first.
func (r *MongoChatRepository) GetChats(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetProjection(bson.M{"messages": 0})
	return r.store.list(ctx, userID, findOptions)
}

func (r *MongoChatRepository) GetChat(ctx context.Context, id, userID primitive.ObjectID) (*models.Chat, error) {
	return r.store.get(ctx, id, userID)
}

// AppendMessages pushes all messages in one update so a user turn and its
// reply are stored together or not at all.
func (r *MongoChatRepository) AppendMessages(ctx context.Context, id, userID primitive.ObjectID, messages ...models.ChatMessage) (*models.Chat, error) {
	return r.store.update(ctx, id, userID, bson.M{
		"$push": bson.M{"messages": bson.M{"$each": messages}},
		"$set":  bson.M{"updated_at": time.Now()},
	})
}

func (r *MongoChatRepository) DeleteChat(ctx context.Context, id, userID primitive.ObjectID) error {
	return r.store.delete(ctx, id, userID)
}

func (r *MongoChatRepository) DeleteChatsByUser(ctx context.Context, userID primitive.ObjectID) error {
	return r.store.deleteAllOwnedBy(ctx, userID)
}
