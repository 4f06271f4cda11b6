package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/studynest/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenBlacklist is the deny-list of revoked bearer tokens, keyed by token digest.
type TokenBlacklist interface {
	Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}

// MongoTokenBlacklist stores revoked tokens in a TTL collection; MongoDB
// removes entries once expires_at passes.
type MongoTokenBlacklist struct {
	collection *mongo.Collection
}

func NewMongoTokenBlacklist(db *mongo.Database) *MongoTokenBlacklist {
	return &MongoTokenBlacklist{collection: db.Collection("revoked_tokens")}
}

func (r *MongoTokenBlacklist) Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": tokenHash},
		bson.M{"$set": bson.M{"expires_at": expiresAt}, "$setOnInsert": bson.M{"created_at": time.Now()}},
		options.Update().SetUpsert(true),
	)
	return err
}

// IsRevoked also checks expires_at since the TTL monitor runs only once a minute.
func (r *MongoTokenBlacklist) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	err := r.collection.FindOne(ctx, bson.M{"_id": tokenHash, "expires_at": bson.M{"$gt": time.Now()}}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PostgresTokenBlacklist implements TokenBlacklist for PostgreSQL
type PostgresTokenBlacklist struct {
	db *gorm.DB
}

// NewPostgresTokenBlacklist migrates the revoked_tokens table and returns the blacklist.
func NewPostgresTokenBlacklist(db *gorm.DB) (*PostgresTokenBlacklist, error) {
	if err := db.AutoMigrate(&models.RevokedToken{}); err != nil {
		return nil, err
	}
	return &PostgresTokenBlacklist{db: db}, nil
}

func (r *PostgresTokenBlacklist) Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	token := models.RevokedToken{TokenHash: tokenHash, ExpiresAt: expiresAt}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&token).Error
}

func (r *PostgresTokenBlacklist) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("token_hash = ? AND expires_at > ?", tokenHash, time.Now()).
		Count(&count).Error
	return count > 0, err
}

// PurgeExpired deletes entries whose token has expired anyway.
func (r *PostgresTokenBlacklist) PurgeExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", time.Now()).Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}
