package stock

import (
	"context"
	"fmt"
	"slices"
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
	"stockledger/pkg/logger"
)

// Service answers stock queries.
type Service struct {
	repo  Repository
	cache Cache
}

// NewService creates a stock service. cache may be nil.
func NewService(repo Repository, cache Cache) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{repo: repo, cache: cache}
}

// ComputeStock returns the stock of an item in a warehouse, optionally as of a date.
// Current balances may be served from the cache; dated queries always sum the register.
func (s *Service) ComputeStock(ctx context.Context, itemID, warehouseID id.ID, asOf *time.Time) (types.Quantity, error) {
	key := ledger.StockKey{ItemID: itemID, WarehouseID: warehouseID}
	cacheable := asOf == nil
	var generation int64
	if cacheable {
		cached, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn(ctx, "stock cache read failed", "item_id", itemID, "warehouse_id", warehouseID, "error", err)
			cacheable = false
		case cached.Hit:
			return cached.Quantity, nil
		default:
			generation = cached.Generation
		}
	}

	movements, err := s.repo.GetMovements(ctx, MovementFilter{ItemID: &itemID, WarehouseID: &warehouseID, To: asOf})
	if err != nil {
		return 0, fmt.Errorf("get movements: %w", err)
	}
	qty := Balance(movements, asOf)

	if cacheable {
		if err := s.cache.Set(ctx, key, qty, generation); err != nil {
			logger.Warn(ctx, "stock cache write failed", "item_id", itemID, "warehouse_id", warehouseID, "error", err)
		}
	}
	return qty, nil
}

// ComputeStockLedger returns every movement of an item in a warehouse with a running balance.
func (s *Service) ComputeStockLedger(ctx context.Context, itemID, warehouseID id.ID) ([]LedgerEntry, error) {
	movements, err := s.repo.GetMovements(ctx, MovementFilter{ItemID: &itemID, WarehouseID: &warehouseID})
	if err != nil {
		return nil, fmt.Errorf("get movements: %w", err)
	}
	return BuildLedger(movements), nil
}

// WarehouseStock is the stock of an item in one warehouse.
type WarehouseStock struct {
	WarehouseID id.ID          `json:"warehouseId"`
	Quantity    types.Quantity `json:"quantity"`
}

// ItemStock is the stock of an item per warehouse. Warehouses whose
// movements cancel out are listed with zero.
type ItemStock struct {
	ItemID     id.ID            `json:"itemId"`
	Warehouses []WarehouseStock `json:"warehouses"`
	Total      types.Quantity   `json:"total"`
}

// ComputeItemStock returns the stock of an item in every warehouse it has moved through.
func (s *Service) ComputeItemStock(ctx context.Context, itemID id.ID, asOf *time.Time) (ItemStock, error) {
	movements, err := s.repo.GetMovements(ctx, MovementFilter{ItemID: &itemID, To: asOf})
	if err != nil {
		return ItemStock{}, fmt.Errorf("get movements: %w", err)
	}

	seen := make(map[id.ID]bool)
	for _, m := range movements {
		seen[m.WarehouseID] = true
	}
	balances := Balances(movements, asOf)

	out := ItemStock{ItemID: itemID, Warehouses: make([]WarehouseStock, 0, len(seen))}
	for wh := range seen {
		qty := balances[ledger.StockKey{ItemID: itemID, WarehouseID: wh}]
		out.Warehouses = append(out.Warehouses, WarehouseStock{WarehouseID: wh, Quantity: qty})
		out.Total += qty
	}
	slices.SortFunc(out.Warehouses, func(a, b WarehouseStock) int {
		return id.Compare(a.WarehouseID, b.WarehouseID)
	})
	return out, nil
}

// Invalidate drops cached balances of keys.
func (s *Service) Invalidate(ctx context.Context, keys []ledger.StockKey) error {
	return s.cache.Invalidate(ctx, keys)
}
