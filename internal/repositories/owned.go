package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ownedStore is the shared core of collections whose documents belong to a
// single user through a user_id field. Every read and write is filtered by
// {_id, user_id}, so another user's document behaves as if it did not exist.
type ownedStore[T any] struct {
	collection *mongo.Collection
}

func newOwnedStore[T any](db *mongo.Database, name string) ownedStore[T] {
	return ownedStore[T]{collection: db.Collection(name)}
}

func ownedFilter(id, owner primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "user_id": owner}
}

func (s ownedStore[T]) insert(ctx context.Context, doc *T) error {
	_, err := s.collection.InsertOne(ctx, doc)
	return err
}

func (s ownedStore[T]) list(ctx context.Context, owner primitive.ObjectID, findOptions *options.FindOptions) ([]T, error) {
	if findOptions == nil {
		findOptions = options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	}
	cursor, err := s.collection.Find(ctx, bson.M{"user_id": owner}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := []T{}
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s ownedStore[T]) get(ctx context.Context, id, owner primitive.ObjectID, findOptions ...*options.FindOneOptions) (*T, error) {
	var item T
	err := s.collection.FindOne(ctx, ownedFilter(id, owner), findOptions...).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// update applies an update document and returns the document after the change.
func (s ownedStore[T]) update(ctx context.Context, id, owner primitive.ObjectID, update bson.M) (*T, error) {
	var item T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.collection.FindOneAndUpdate(ctx, ownedFilter(id, owner), update, opts).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s ownedStore[T]) delete(ctx context.Context, id, owner primitive.ObjectID) error {
	res, err := s.collection.DeleteOne(ctx, ownedFilter(id, owner))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s ownedStore[T]) deleteAllOwnedBy(ctx context.Context, owner primitive.ObjectID) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{"user_id": owner})
	return err
}
