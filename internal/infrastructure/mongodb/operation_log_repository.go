package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/inventory-platform/ledger-service/internal/domain"
)

const operationLogCollection = "operation_logs"

// OperationLogRepository implements domain.OperationLogRepository using
// MongoDB. The collection is append-only; the single permitted update is
// the false-to-true flip of is_revoked.
type OperationLogRepository struct {
	collection *mongo.Collection
}

// NewOperationLogRepository creates a new MongoDB operation log repository
func NewOperationLogRepository(db *mongo.Database) *OperationLogRepository {
	return &OperationLogRepository{
		collection: db.Collection(operationLogCollection),
	}
}

// EnsureIndexes creates the indexes needed by the operation log collection
func (r *OperationLogRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{
				{Key: "target_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "operator_id", Value: 1}},
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create operation log indexes: %w", err)
	}
	return nil
}

// Append durably stores a new entry
func (r *OperationLogRepository) Append(ctx context.Context, entry *domain.OperationLogEntry) error {
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to append operation log entry: %w", err)
	}
	return nil
}

// FindByID retrieves an entry by ID
func (r *OperationLogRepository) FindByID(ctx context.Context, id domain.LogID) (*domain.OperationLogEntry, error) {
	var entry domain.OperationLogEntry
	err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrLogEntryNotFound
		}
		return nil, fmt.Errorf("failed to find operation log entry: %w", err)
	}
	return &entry, nil
}

// MarkRevoked flips is_revoked for an entry. The filter requires the flag
// to still be false, which makes the transition monotonic even under
// concurrent revokes.
func (r *OperationLogRepository) MarkRevoked(ctx context.Context, id domain.LogID) error {
	filter := bson.M{
		"_id":        id.String(),
		"is_revoked": false,
	}
	update := bson.M{"$set": bson.M{"is_revoked": true}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark entry revoked: %w", err)
	}

	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id.String()})
		if err != nil {
			return fmt.Errorf("failed to check entry existence: %w", err)
		}
		if count == 0 {
			return domain.ErrLogEntryNotFound
		}
		return domain.ErrAlreadyRevoked
	}

	return nil
}

// Recent returns up to limit entries, newest first
func (r *OperationLogRepository) Recent(ctx context.Context, limit int) ([]*domain.OperationLogEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*domain.OperationLogEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode operation log entries: %w", err)
	}

	return entries, nil
}

// CountNewerForTarget counts non-revoked entries for a batch appended
// strictly after the given time
func (r *OperationLogRepository) CountNewerForTarget(ctx context.Context, targetID string, after time.Time) (int64, error) {
	filter := bson.M{
		"target_id":  targetID,
		"is_revoked": false,
		"created_at": bson.M{"$gt": after},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count newer entries: %w", err)
	}
	return count, nil
}
