package application

import (
	"time"

	"github.com/inventory-platform/ledger-service/internal/domain"
)

// CreateProductCommand registers a catalog product.
type CreateProductCommand struct {
	Name           string
	SKU            string
	Category       string
	UnitLarge      string
	UnitSmall      string
	ConversionRate int
	ImageURL       string
}

// CreateBatchCommand creates a batch and logs its initial stock as an
// IMPORT operation.
type CreateBatchCommand struct {
	ProductID       string
	StoreID         string
	BatchNumber     string
	ExpiryDate      time.Time
	InitialQuantity domain.Quantity
	Remark          string
	OperatorID      string
}

// ExecuteCommand applies a recorded mutation to a batch. Delta is the
// signed net effect in dual-unit form; it is ignored for DELETE, where the
// effective delta is derived from the current quantities.
type ExecuteCommand struct {
	ActionType domain.ActionType
	TargetID   string
	Delta      domain.Quantity
	OperatorID string
}

// RevokeCommand restores a batch to the snapshot taken before the
// referenced operation and marks the entry revoked.
type RevokeCommand struct {
	LogID      domain.LogID
	OperatorID string
}

// GetProductQuery retrieves a single product.
type GetProductQuery struct {
	ProductID string
}

// ListProductsQuery lists catalog products with pagination.
type ListProductsQuery struct {
	Limit  int
	Offset int
}

// ListBatchesQuery lists the batches of a product, soonest expiry first.
type ListBatchesQuery struct {
	ProductID      string
	IncludeDeleted bool
}

// ProductTotalsQuery computes per-product stock totals.
type ProductTotalsQuery struct {
	ProductID string
}

// RecentActivityQuery reads the newest audit trail entries.
type RecentActivityQuery struct {
	Limit         int
	JoinOperators bool
}
