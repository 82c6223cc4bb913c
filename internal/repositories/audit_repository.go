package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/nano-midea/comments/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AuditRepository records successful comment mutations.
type AuditRepository interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

// MongoAuditRepository implements AuditRepository for MongoDB
type MongoAuditRepository struct {
	collection *mongo.Collection
}

// NewMongoAuditRepository creates a new MongoAuditRepository
func NewMongoAuditRepository(db *mongo.Database) *MongoAuditRepository {
	return &MongoAuditRepository{collection: db.Collection("comment_audit")}
}

// EnsureIndexes creates the lookup index on comment_id.
func (r *MongoAuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "comment_id", Value: 1}, {Key: "at", Value: -1}},
		Options: options.Index().SetName("comment_id_at"),
	})
	if err != nil {
		return fmt.Errorf("create audit index: %w", err)
	}
	return nil
}

// Record inserts one audit entry.
func (r *MongoAuditRepository) Record(ctx context.Context, entry models.AuditEntry) error {
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// NopAuditRepository discards entries; used when MONGO_URI is not set.
type NopAuditRepository struct{}

// Record implements AuditRepository.
func (NopAuditRepository) Record(context.Context, models.AuditEntry) error { return nil }
