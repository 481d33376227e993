package booking

import (
	"fmt"
	"math"

	"github.com/tourdesk/service-booking/internal/domain/product"
)

// PricingStrategy defines the interface for calculating a request's total.
type PricingStrategy interface {
	// Calculate returns the total in minor currency units.
	Calculate(params PricingParams) (int64, error)
}

// PricingParams holds the inputs for price calculation.
type PricingParams struct {
	AdultCount int
	ChildCount int
	Prices     product.UnitPrices
}

// StandardPricingStrategy charges each person the unit price for their age band.
type StandardPricingStrategy struct{}

// NewStandardPricingStrategy creates a new StandardPricingStrategy.
func NewStandardPricingStrategy() *StandardPricingStrategy {
	return &StandardPricingStrategy{}
}

// Calculate computes adultCount*adultPrice + childCount*childPrice.
func (s *StandardPricingStrategy) Calculate(params PricingParams) (int64, error) {
	if params.AdultCount < 0 || params.ChildCount < 0 {
		return 0, fmt.Errorf("head counts cannot be negative")
	}
	if params.Prices.Adult < 0 || params.Prices.Child < 0 {
		return 0, fmt.Errorf("unit prices cannot be negative")
	}

	adult, ok := mulNoOverflow(int64(params.AdultCount), params.Prices.Adult)
	if !ok {
		return 0, fmt.Errorf("adult total overflows")
	}
	child, ok := mulNoOverflow(int64(params.ChildCount), params.Prices.Child)
	if !ok {
		return 0, fmt.Errorf("child total overflows")
	}
	if adult > math.MaxInt64-child {
		return 0, fmt.Errorf("total overflows")
	}
	return adult + child, nil
}

func mulNoOverflow(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt64/b {
		return 0, false
	}
	return a * b, true
}
