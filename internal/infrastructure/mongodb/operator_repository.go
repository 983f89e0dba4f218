package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/inventory-platform/ledger-service/internal/domain"
)

const operatorCollection = "profiles"

// OperatorRepository implements domain.OperatorRepository using MongoDB.
// Operator records are written by the identity service; this repository
// only reads them for audit joins.
type OperatorRepository struct {
	collection *mongo.Collection
}

// NewOperatorRepository creates a new MongoDB operator repository
func NewOperatorRepository(db *mongo.Database) *OperatorRepository {
	return &OperatorRepository{
		collection: db.Collection(operatorCollection),
	}
}

// FindByID retrieves an operator profile by ID
func (r *OperatorRepository) FindByID(ctx context.Context, id string) (*domain.Operator, error) {
	var operator domain.Operator
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&operator)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrOperatorNotFound
		}
		return nil, fmt.Errorf("failed to find operator: %w", err)
	}
	return &operator, nil
}
