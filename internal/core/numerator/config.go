// Package numerator provides contracts for transaction reference numbering.
package numerator

import (
	"fmt"
	"time"

	"stockledger/internal/core/fiscal"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict allocates every number in the database.
	// Guarantees sequential numbers without gaps.
	StrategyStrict Strategy = iota

	// StrategyCached allocates ranges of numbers in memory.
	// Faster, but may produce gaps if the process restarts.
	StrategyCached
)

// ParseStrategy maps a configuration value; anything but "cached" is strict.
func ParseStrategy(s string) Strategy {
	if s == "cached" {
		return StrategyCached
	}
	return StrategyStrict
}

// Options configuration for number generation.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of values allocated at once in Cached strategy.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{
		Strategy: StrategyStrict,
	}
}

// ResetPeriod selects when a sequence starts again from 1.
type ResetPeriod string

const (
	ResetFinancialYear ResetPeriod = "financial_year"
	ResetNever         ResetPeriod = "never"
)

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "PRD", "TRF")
	Prefix string

	// PadWidth is the minimum sequence width (default 5)
	PadWidth int

	ResetPeriod ResetPeriod
}

// DefaultConfig returns numbering per financial year: PRD-2025-00001.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		PadWidth:    5,
		ResetPeriod: ResetFinancialYear,
	}
}

// Year is the sequence year of period: its financial year, or 0 when the
// sequence never resets.
func (c Config) Year(period time.Time) int {
	if c.ResetPeriod == ResetNever {
		return 0
	}
	return fiscal.Year(period)
}

// Format renders sequence value n: PRD-2025-00001, or PRD-00001 without reset.
func (c Config) Format(period time.Time, n int64) string {
	width := c.PadWidth
	if width <= 0 {
		width = 5
	}
	if y := c.Year(period); y != 0 {
		return fmt.Sprintf("%s-%d-%0*d", c.Prefix, y, width, n)
	}
	return fmt.Sprintf("%s-%0*d", c.Prefix, width, n)
}
