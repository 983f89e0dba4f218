package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	mongoclient "github.com/inventory-platform/ledger-service/pkg/mongodb"
)

// Transactor implements domain.Transactor on top of MongoDB multi-document
// transactions. Repository calls made with the session context join the
// transaction; an error from fn aborts everything written inside it.
// Requires a replica set deployment.
type Transactor struct {
	client *mongoclient.Client
}

// NewTransactor creates a new MongoDB transactor
func NewTransactor(client *mongoclient.Client) *Transactor {
	return &Transactor{client: client}
}

// WithinTransaction runs fn inside a single MongoDB transaction
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx)
	})
}
