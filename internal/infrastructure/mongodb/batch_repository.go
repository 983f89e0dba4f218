package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/inventory-platform/ledger-service/internal/domain"
)

const batchCollection = "batches"

// BatchRepository implements domain.BatchRepository using MongoDB
type BatchRepository struct {
	collection *mongo.Collection
}

// NewBatchRepository creates a new MongoDB batch repository
func NewBatchRepository(db *mongo.Database) *BatchRepository {
	return &BatchRepository{
		collection: db.Collection(batchCollection),
	}
}

// EnsureIndexes creates the indexes needed by the batches collection
func (r *BatchRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "product_id", Value: 1},
				{Key: "expiry_date", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "store_id", Value: 1},
				{Key: "deleted", Value: 1},
			},
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create batch indexes: %w", err)
	}
	return nil
}

// FindByID retrieves a batch by ID, tombstoned ones included
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*domain.Batch, error) {
	var batch domain.Batch
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&batch)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to find batch: %w", err)
	}
	return &batch, nil
}

// FindByProduct retrieves all batches of a product, tombstoned ones included
func (r *BatchRepository) FindByProduct(ctx context.Context, productID string) ([]*domain.Batch, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"product_id": productID})
	if err != nil {
		return nil, fmt.Errorf("failed to find batches by product: %w", err)
	}
	defer cursor.Close(ctx)

	var batches []*domain.Batch
	if err := cursor.All(ctx, &batches); err != nil {
		return nil, fmt.Errorf("failed to decode batches: %w", err)
	}

	return batches, nil
}

// Insert persists a new batch
func (r *BatchRepository) Insert(ctx context.Context, batch *domain.Batch) error {
	if _, err := r.collection.InsertOne(ctx, batch); err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}
	return nil
}

// Update writes a mutated batch back, guarded by the version the batch
// carried when it was loaded. A concurrent writer that bumped the version
// first surfaces as ErrTransactionConflict; the caller retries with fresh
// state.
func (r *BatchRepository) Update(ctx context.Context, batch *domain.Batch) error {
	filter := bson.M{
		"_id":     batch.ID,
		"version": batch.Version,
	}

	update := bson.M{
		"$set": bson.M{
			"product_id":     batch.ProductID,
			"store_id":       batch.StoreID,
			"batch_number":   batch.BatchNumber,
			"expiry_date":    batch.ExpiryDate,
			"quantity_large": batch.Quantity.Large,
			"quantity_small": batch.Quantity.Small,
			"remark":         batch.Remark,
			"deleted":        batch.Deleted,
			"version":        batch.Version + 1,
			"created_at":     batch.CreatedAt,
			"updated_at":     batch.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}

	if result.MatchedCount == 0 {
		// Distinguish a lost version race from a missing record
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": batch.ID})
		if err != nil {
			return fmt.Errorf("failed to check batch existence: %w", err)
		}
		if count == 0 {
			return domain.ErrBatchNotFound
		}
		return domain.ErrTransactionConflict
	}

	batch.Version++
	return nil
}
