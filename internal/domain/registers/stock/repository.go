// Package stock is the stock aggregator: stock per (item, warehouse) is always
// the signed sum of the movement register, never a stored running balance.
package stock

import (
	"context"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
)

// Repository stores the movement register.
type Repository interface {
	// ReplaceMovements deletes the movements of recorderID and inserts movements.
	ReplaceMovements(ctx context.Context, recorderID id.ID, movements []entity.StockMovement) error

	// DeleteMovementsByRecorder removes all movements of a header.
	DeleteMovementsByRecorder(ctx context.Context, recorderID id.ID) error

	// GetMovementsByRecorder retrieves all movements of a header.
	GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error)

	// GetMovements returns the movements matching filter, in no particular order.
	GetMovements(ctx context.Context, filter MovementFilter) ([]entity.StockMovement, error)
}

// MovementFilter narrows movement queries. Nil fields match everything;
// From and To are inclusive calendar days.
type MovementFilter struct {
	ItemID        *id.ID
	WarehouseID   *id.ID
	From          *time.Time
	To            *time.Time
	RecorderTypes []ledger.Kind
}

// Cached is the result of a cache lookup. On a miss Generation carries the
// key's invalidation counter as read before the register is summed.
type Cached struct {
	Quantity   types.Quantity
	Hit        bool
	Generation int64
}

// Cache holds current balances derived from the register. It is never the
// source of truth: a miss or an error falls back to summing movements.
//
// Invalidate bumps the generation of each key. Set stores a balance only if
// the generation still equals the one returned by the preceding Get, so a
// balance summed before a concurrent commit is never written back.
type Cache interface {
	Get(ctx context.Context, key ledger.StockKey) (Cached, error)
	Set(ctx context.Context, key ledger.StockKey, qty types.Quantity, generation int64) error
	Invalidate(ctx context.Context, keys []ledger.StockKey) error
}

// NopCache caches nothing.
type NopCache struct{}

func (NopCache) Get(context.Context, ledger.StockKey) (Cached, error) { return Cached{}, nil }

func (NopCache) Set(context.Context, ledger.StockKey, types.Quantity, int64) error { return nil }

func (NopCache) Invalidate(context.Context, []ledger.StockKey) error { return nil }
