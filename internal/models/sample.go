package models

import (
	"fmt"
	"math"
	"time"
)

// PriceSample is one observed spot price. A zero price marks a chart placeholder.
type PriceSample struct {
	At    time.Time `json:"t"`
	Price float64   `json:"p"`
}

// ValidatePrice rejects prices that cannot be used for odds math.
func ValidatePrice(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSample, p)
	}
	return nil
}
