package domain

// Quantity represents a dual-unit stock amount: a coarse count of large
// units (boxes, cartons) plus a fine remainder of small units (bottles,
// pieces). The two are related by a per-product conversion rate giving the
// number of small units per large unit. Deltas are signed; stored batch
// quantities are always kept in normalized form with 0 <= Small < rate.
type Quantity struct {
	Large int `bson:"quantity_large" json:"quantity_large"`
	Small int `bson:"quantity_small" json:"quantity_small"`
}

// ZeroQuantity returns an empty quantity.
func ZeroQuantity() Quantity {
	return Quantity{}
}

// IsZero returns true if both components are zero.
func (q Quantity) IsZero() bool {
	return q.Large == 0 && q.Small == 0
}

// Negate returns the additive inverse of the quantity.
func (q Quantity) Negate() Quantity {
	return Quantity{Large: -q.Large, Small: -q.Small}
}

// Total converts the quantity to its canonical magnitude in small units.
// Works for signed deltas as well as stored quantities.
func (q Quantity) Total(rate int) (int, error) {
	if rate <= 0 {
		return 0, ErrInvalidRate
	}
	return q.Large*rate + q.Small, nil
}

// IsNormalized reports whether the quantity is in normalized form for the
// given rate.
func (q Quantity) IsNormalized(rate int) bool {
	return rate > 0 && q.Large >= 0 && q.Small >= 0 && q.Small < rate
}

// Normalize returns the unique equivalent quantity with 0 <= Small < rate.
// The canonical magnitude is preserved; for negative totals the Large
// component goes negative while Small stays within [0, rate).
func (q Quantity) Normalize(rate int) (Quantity, error) {
	total, err := q.Total(rate)
	if err != nil {
		return Quantity{}, err
	}
	large := total / rate
	small := total % rate
	if small < 0 {
		large--
		small += rate
	}
	return Quantity{Large: large, Small: small}, nil
}

// QuantityFromTotal converts a canonical magnitude back to normalized
// dual-unit form. Negative totals are rejected: stored stock is never
// allowed below zero.
func QuantityFromTotal(total, rate int) (Quantity, error) {
	if rate <= 0 {
		return Quantity{}, ErrInvalidRate
	}
	if total < 0 {
		return Quantity{}, ErrNegativeStock
	}
	return Quantity{Large: total / rate, Small: total % rate}, nil
}

// Add combines two quantities via their totals and returns the normalized
// result. The second operand may be a signed delta; if the combined total
// would be negative the operation fails with ErrNegativeStock and the
// receiver is unchanged.
func (q Quantity) Add(delta Quantity, rate int) (Quantity, error) {
	qt, err := q.Total(rate)
	if err != nil {
		return Quantity{}, err
	}
	dt, err := delta.Total(rate)
	if err != nil {
		return Quantity{}, err
	}
	return QuantityFromTotal(qt+dt, rate)
}

// Subtract removes delta from the quantity, failing with ErrNegativeStock
// if the result would be negative.
func (q Quantity) Subtract(delta Quantity, rate int) (Quantity, error) {
	return q.Add(delta.Negate(), rate)
}
