package numerator

import (
	"context"
	"time"
)

// Generator generates sequential reference numbers.
// Implementations live in infrastructure layer.
type Generator interface {
	// GetNextNumber generates the next number for the financial year of period.
	// Pattern: PREFIX-FY-XXXXX (e.g., PRD-2025-00001)
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber sets the next number value (for data migration).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
