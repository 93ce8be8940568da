package reports

import (
	"context"
	"time"
)

// Repository aggregates the movement register.
type Repository interface {
	// Totals sums inward receipts, outward expenses and produced receipts dated within [from, to].
	Totals(ctx context.Context, from, to time.Time) (Totals, error)

	// Turnover sums receipts and expenses per (item, warehouse), ordered by item then warehouse.
	Turnover(ctx context.Context, filter TurnoverFilter) ([]TurnoverRow, error)

	// Balances returns the stock of every (item, warehouse) as of asOf, using
	// the same opening balance rule as the stock aggregator.
	Balances(ctx context.Context, asOf *time.Time) ([]BalanceRow, error)
}
