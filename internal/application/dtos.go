package application

import (
	"time"

	"github.com/inventory-platform/ledger-service/internal/domain"
)

// ProductDTO is the transport representation of a catalog product.
type ProductDTO struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku"`
	Category       string    `json:"category"`
	UnitLarge      string    `json:"unit_large"`
	UnitSmall      string    `json:"unit_small"`
	ConversionRate int       `json:"conversion_rate"`
	ImageURL       string    `json:"image_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BatchDTO is the transport representation of a stock batch.
type BatchDTO struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	StoreID       string    `json:"store_id"`
	BatchNumber   string    `json:"batch_number"`
	ExpiryDate    time.Time `json:"expiry_date"`
	QuantityLarge int       `json:"quantity_large"`
	QuantitySmall int       `json:"quantity_small"`
	Remark        string    `json:"remark,omitempty"`
	Deleted       bool      `json:"deleted"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DeltaDTO is the transport representation of a signed dual-unit delta.
type DeltaDTO struct {
	QuantityLarge int `json:"quantity_large"`
	QuantitySmall int `json:"quantity_small"`
}

// LogEntryDTO is the transport representation of an audit trail entry.
type LogEntryDTO struct {
	ID           string    `json:"id"`
	ActionType   string    `json:"action_type"`
	TargetID     string    `json:"target_id"`
	ChangeDelta  DeltaDTO  `json:"change_delta"`
	SnapshotData BatchDTO  `json:"snapshot_data"`
	OperatorID   string    `json:"operator_id"`
	OperatorName string    `json:"operator_name,omitempty"`
	IsRevoked    bool      `json:"is_revoked"`
	CreatedAt    time.Time `json:"created_at"`
}

// ExecuteResultDTO carries the outcome of a recorded mutation.
type ExecuteResultDTO struct {
	Batch BatchDTO `json:"batch"`
	LogID string   `json:"log_id"`
}

// RevokeResultDTO carries the outcome of a revoke. DiscardedOperations is
// the number of later, non-revoked operations on the same batch whose
// effects were wiped by the snapshot restore; callers surface it as a
// warning.
type RevokeResultDTO struct {
	Batch               BatchDTO `json:"batch"`
	LogID               string   `json:"log_id"`
	ActionType          string   `json:"action_type"`
	DiscardedOperations int64    `json:"discarded_operations"`
}

// ProductTotalsDTO is the folded stock position of a product across its
// live batches, in normalized dual-unit form.
type ProductTotalsDTO struct {
	ProductID  string `json:"product_id"`
	TotalLarge int    `json:"total_large"`
	TotalSmall int    `json:"total_small"`
	UnitLarge  string `json:"unit_large"`
	UnitSmall  string `json:"unit_small"`
	BatchCount int    `json:"batch_count"`
}

// Mapper functions

func toProductDTO(p *domain.Product) *ProductDTO {
	return &ProductDTO{
		ID:             p.ID,
		Name:           p.Name,
		SKU:            p.SKU,
		Category:       p.Category,
		UnitLarge:      p.UnitLarge,
		UnitSmall:      p.UnitSmall,
		ConversionRate: p.ConversionRate,
		ImageURL:       p.ImageURL,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func toProductDTOs(products []*domain.Product) []ProductDTO {
	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = *toProductDTO(p)
	}
	return dtos
}

func toBatchDTO(b *domain.Batch) BatchDTO {
	return BatchDTO{
		ID:            b.ID,
		ProductID:     b.ProductID,
		StoreID:       b.StoreID,
		BatchNumber:   b.BatchNumber,
		ExpiryDate:    b.ExpiryDate,
		QuantityLarge: b.Quantity.Large,
		QuantitySmall: b.Quantity.Small,
		Remark:        b.Remark,
		Deleted:       b.Deleted,
		UpdatedAt:     b.UpdatedAt,
	}
}

func toLogEntryDTO(e *domain.OperationLogEntry) LogEntryDTO {
	snapshot := e.SnapshotData
	return LogEntryDTO{
		ID:         e.ID.String(),
		ActionType: e.ActionType.String(),
		TargetID:   e.TargetID,
		ChangeDelta: DeltaDTO{
			QuantityLarge: e.ChangeDelta.Large,
			QuantitySmall: e.ChangeDelta.Small,
		},
		SnapshotData: toBatchDTO(&snapshot),
		OperatorID:   e.OperatorID,
		OperatorName: e.OperatorName,
		IsRevoked:    e.IsRevoked,
		CreatedAt:    e.CreatedAt,
	}
}

func toLogEntryDTOs(entries []*domain.OperationLogEntry) []LogEntryDTO {
	dtos := make([]LogEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toLogEntryDTO(e)
	}
	return dtos
}
