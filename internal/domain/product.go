package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry describing a stocked item and its dual-unit
// scheme. ConversionRate is the number of small units per large unit and is
// immutable once batches reference the product; display fields may change.
type Product struct {
	ID             string    `bson:"_id" json:"id"`
	Name           string    `bson:"name" json:"name"`
	SKU            string    `bson:"sku" json:"sku"`
	Category       string    `bson:"category" json:"category"`
	UnitLarge      string    `bson:"unit_large" json:"unit_large"`
	UnitSmall      string    `bson:"unit_small" json:"unit_small"`
	ConversionRate int       `bson:"conversion_rate" json:"conversion_rate"`
	ImageURL       string    `bson:"image_url,omitempty" json:"image_url,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// NewProduct creates a catalog product. The SKU is uppercased and must be
// unique within the catalog; uniqueness is enforced by the store.
func NewProduct(name, sku, category, unitLarge, unitSmall string, conversionRate int) (*Product, error) {
	if name == "" {
		return nil, fmt.Errorf("product name is required")
	}
	if sku == "" {
		return nil, fmt.Errorf("product SKU is required")
	}
	if unitLarge == "" || unitSmall == "" {
		return nil, fmt.Errorf("unit labels are required")
	}
	if conversionRate <= 0 {
		return nil, ErrInvalidRate
	}

	now := time.Now().UTC()

	return &Product{
		ID:             uuid.New().String(),
		Name:           name,
		SKU:            strings.ToUpper(sku),
		Category:       category,
		UnitLarge:      unitLarge,
		UnitSmall:      unitSmall,
		ConversionRate: conversionRate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// UpdateDisplay changes the mutable display fields. Conversion rate and SKU
// are intentionally not touched here.
func (p *Product) UpdateDisplay(name, category, imageURL string) {
	if name != "" {
		p.Name = name
	}
	if category != "" {
		p.Category = category
	}
	if imageURL != "" {
		p.ImageURL = imageURL
	}
	p.UpdatedAt = time.Now().UTC()
}
