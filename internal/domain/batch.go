package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Batch is the current, mutable stock record for a Product in a store.
// Quantities are kept in normalized dual-unit form; every mutation goes
// through Apply so the invariant 0 <= Quantity.Small < rate holds after
// each write. Deleted batches are tombstoned (terminal zero quantities)
// rather than removed so their history remains revocable.
type Batch struct {
	ID          string    `bson:"_id" json:"id"`
	ProductID   string    `bson:"product_id" json:"product_id"`
	StoreID     string    `bson:"store_id" json:"store_id"`
	BatchNumber string    `bson:"batch_number" json:"batch_number"`
	ExpiryDate  time.Time `bson:"expiry_date" json:"expiry_date"`
	Quantity    Quantity  `bson:",inline" json:"quantity"`
	Remark      string    `bson:"remark,omitempty" json:"remark,omitempty"`
	Deleted     bool      `bson:"deleted" json:"deleted"`

	// Version backs the optimistic per-batch concurrency check; bumped on
	// every successful write.
	Version   int64     `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NewBatch creates an empty batch for a product. Stock arrives through
// ledger operations, never at construction time, so even the first receipt
// is logged and revocable.
func NewBatch(productID, storeID, batchNumber string, expiryDate time.Time, remark string) (*Batch, error) {
	if productID == "" {
		return nil, fmt.Errorf("product ID is required")
	}
	if storeID == "" {
		return nil, fmt.Errorf("store ID is required")
	}
	if batchNumber == "" {
		return nil, fmt.Errorf("batch number is required")
	}

	now := time.Now().UTC()

	return &Batch{
		ID:          uuid.New().String(),
		ProductID:   productID,
		StoreID:     storeID,
		BatchNumber: batchNumber,
		ExpiryDate:  expiryDate,
		Quantity:    ZeroQuantity(),
		Remark:      remark,
		Version:     0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Snapshot returns a value copy of the batch as it stands, suitable for
// storing in an operation log entry before a mutation is applied.
func (b *Batch) Snapshot() Batch {
	return *b
}

// Apply adds the signed delta to the batch quantity and renormalizes.
// Fails with ErrNegativeStock when the resulting total would be negative
// and with ErrBatchDeleted when the batch is tombstoned; the batch is
// unchanged on error.
func (b *Batch) Apply(delta Quantity, rate int) error {
	if b.Deleted {
		return ErrBatchDeleted
	}

	updated, err := b.Quantity.Add(delta, rate)
	if err != nil {
		return err
	}

	b.Quantity = updated
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkDeleted tombstones the batch: quantities drop to the terminal zero
// state and the record stays addressable for revoke. Returns the delta that
// was effectively applied (the negated current quantity).
func (b *Batch) MarkDeleted() (Quantity, error) {
	if b.Deleted {
		return Quantity{}, ErrBatchDeleted
	}

	delta := b.Quantity.Negate()
	b.Quantity = ZeroQuantity()
	b.Deleted = true
	b.UpdatedAt = time.Now().UTC()
	return delta, nil
}

// Restore unconditionally overwrites the batch with a prior snapshot,
// keeping only the identity and version fields of the current record.
// Used by revoke; the snapshot is normalized by construction since it was
// produced by an earlier Apply.
func (b *Batch) Restore(snapshot Batch) {
	id, version, createdAt := b.ID, b.Version, b.CreatedAt

	*b = snapshot
	b.ID = id
	b.Version = version
	b.CreatedAt = createdAt
	b.UpdatedAt = time.Now().UTC()
}

// TotalSmallUnits returns the canonical magnitude of the batch for the
// given conversion rate.
func (b *Batch) TotalSmallUnits(rate int) (int, error) {
	return b.Quantity.Total(rate)
}
