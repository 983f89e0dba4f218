package domain

import (
	"context"
	"time"
)

// ProductRepository defines the port for catalog persistence.
type ProductRepository interface {
	// Save inserts a product; fails with ErrSKUExists on a duplicate SKU.
	Save(ctx context.Context, product *Product) error

	// FindByID retrieves a product; fails with ErrProductNotFound.
	FindByID(ctx context.Context, id string) (*Product, error)

	// FindBySKU retrieves a product by its unique SKU.
	FindBySKU(ctx context.Context, sku string) (*Product, error)

	// FindAll lists products with pagination, newest first.
	FindAll(ctx context.Context, limit, offset int) ([]*Product, error)
}

// BatchRepository defines the port for batch stock persistence. Update is
// the sole mutation primitive and performs an optimistic version check;
// a lost race surfaces as ErrTransactionConflict.
type BatchRepository interface {
	// FindByID retrieves a batch (tombstoned ones included); fails with
	// ErrBatchNotFound.
	FindByID(ctx context.Context, id string) (*Batch, error)

	// FindByProduct retrieves all batches of a product, tombstoned ones
	// included; readers filter on Deleted.
	FindByProduct(ctx context.Context, productID string) ([]*Batch, error)

	// Insert persists a new batch.
	Insert(ctx context.Context, batch *Batch) error

	// Update writes a mutated batch back, guarded by the version the batch
	// carried when it was loaded. The stored version is bumped on success.
	Update(ctx context.Context, batch *Batch) error
}

// OperationLogRepository defines the port for the append-only audit trail.
type OperationLogRepository interface {
	// Append durably stores a new entry; never overwrites.
	Append(ctx context.Context, entry *OperationLogEntry) error

	// FindByID retrieves an entry; fails with ErrLogEntryNotFound.
	FindByID(ctx context.Context, id LogID) (*OperationLogEntry, error)

	// MarkRevoked flips is_revoked for an entry; fails with
	// ErrAlreadyRevoked when the flag is already set and with
	// ErrLogEntryNotFound when the entry is absent.
	MarkRevoked(ctx context.Context, id LogID) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]*OperationLogEntry, error)

	// CountNewerForTarget counts non-revoked entries for a batch appended
	// strictly after the given time. Used to warn callers revoking a
	// non-latest entry that intervening operations will be discarded.
	CountNewerForTarget(ctx context.Context, targetID string, after time.Time) (int64, error)
}

// Operator is the read-only projection of an authenticated operator used
// for audit joins. Identity verification itself happens upstream.
type Operator struct {
	ID       string    `bson:"_id" json:"id"`
	Username string    `bson:"username" json:"username"`
	Role     RoleLevel `bson:"role_level" json:"role_level"`
}

// OperatorRepository resolves operator display data for activity views.
type OperatorRepository interface {
	FindByID(ctx context.Context, id string) (*Operator, error)
}

// Transactor runs a function inside a single atomic commit. Repository
// calls made with the supplied context join the transaction; if fn returns
// an error every write inside it is rolled back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
