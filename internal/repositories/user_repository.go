package repositories

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/anonto42/studynest/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
	ListRecipients(ctx context.Context, exclude primitive.ObjectID, asOf time.Time) ([]primitive.ObjectID, error)
	UpdateName(ctx context.Context, id primitive.ObjectID, name string) (*models.User, error)
	UpdateProfilePicture(ctx context.Context, id primitive.ObjectID, url string) (*models.User, error)
	LinkFirebaseUID(ctx context.Context, id primitive.ObjectID, firebaseUID string) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
	SearchUsers(ctx context.Context, query string, limit int64) ([]models.User, error)
	Follow(ctx context.Context, followerID, targetID primitive.ObjectID) error
	Unfollow(ctx context.Context, followerID, targetID primitive.ObjectID) error
}

// MongoUserRepository implements UserRepository for MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users")}
}

// CreateUser inserts a user, normalizing the email to lower case.
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}

	_, err := r.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *MongoUserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *MongoUserRepository) GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"firebase_uid": firebaseUID})
}

// ListRecipients returns the id of every user other than exclude whose
// account was created no later than asOf.
func (r *MongoUserRepository) ListRecipients(ctx context.Context, exclude primitive.ObjectID, asOf time.Time) ([]primitive.ObjectID, error) {
	filter := bson.M{
		"_id":        bson.M{"$ne": exclude},
		"created_at": bson.M{"$lte": asOf},
	}
	findOptions := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []primitive.ObjectID
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}

func (r *MongoUserRepository) updateFields(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	set["updated_at"] = time.Now()
	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *MongoUserRepository) UpdateName(ctx context.Context, id primitive.ObjectID, name string) (*models.User, error) {
	return r.updateFields(ctx, id, bson.M{"name": name})
}

func (r *MongoUserRepository) UpdateProfilePicture(ctx context.Context, id primitive.ObjectID, url string) (*models.User, error) {
	return r.updateFields(ctx, id, bson.M{"profile_picture": url})
}

// LinkFirebaseUID attaches a Firebase identity to an existing email account.
func (r *MongoUserRepository) LinkFirebaseUID(ctx context.Context, id primitive.ObjectID, firebaseUID string) error {
	_, err := r.updateFields(ctx, id, bson.M{"firebase_uid": firebaseUID})
	return err
}

// DeleteUser removes the user and drops it from every follower/following list.
func (r *MongoUserRepository) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	_, err = r.collection.UpdateMany(ctx,
		bson.M{"$or": bson.A{bson.M{"followers": id}, bson.M{"following": id}}},
		bson.M{"$pull": bson.M{"followers": id, "following": id}},
	)
	return err
}

// SearchUsers searches for users by name or email (case-insensitive)
func (r *MongoUserRepository) SearchUsers(ctx context.Context, query string, limit int64) ([]models.User, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"name": pattern},
		bson.M{"email": pattern},
	}}
	findOptions := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Follow records followerID -> targetID with one atomic $addToSet per document.
// The target must exist; a repeated follow is a no-op.
func (r *MongoUserRepository) Follow(ctx context.Context, followerID, targetID primitive.ObjectID) error {
	now := time.Now()
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": targetID},
		bson.M{"$addToSet": bson.M{"followers": followerID}, "$set": bson.M{"updated_at": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": followerID},
		bson.M{"$addToSet": bson.M{"following": targetID}, "$set": bson.M{"updated_at": now}},
	)
	return err
}

// Unfollow is the $pull counterpart of Follow.
func (r *MongoUserRepository) Unfollow(ctx context.Context, followerID, targetID primitive.ObjectID) error {
	now := time.Now()
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": targetID},
		bson.M{"$pull": bson.M{"followers": followerID}, "$set": bson.M{"updated_at": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": followerID},
		bson.M{"$pull": bson.M{"following": targetID}, "$set": bson.M{"updated_at": now}},
	)
	return err
}
