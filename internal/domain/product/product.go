// Package product is the narrow view of the external tour catalog that
// booking requests depend on: unit prices and the normalized list fields.
package product

import (
	"context"

	"github.com/google/uuid"
)

// UnitPrices are per-person prices in minor currency units.
type UnitPrices struct {
	Adult int64 `json:"adult"`
	Child int64 `json:"child"`
}

// PriceLookup fetches current unit prices for a product. Implementations
// return a not-found domain error for unknown products.
type PriceLookup interface {
	GetUnitPrices(ctx context.Context, productID uuid.UUID) (UnitPrices, error)
}

// Product is the read-only catalog entry.
type Product struct {
	ID         uuid.UUID
	Name       string
	Prices     UnitPrices
	IncludesKO List
	ExcludesKO List
}
