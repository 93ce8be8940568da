package stock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
)

type fakeRepo struct {
	Repository
	moves []entity.StockMovement
	reads int
	// onRead runs after the register is read, before the result is returned.
	onRead func()
}

func (f *fakeRepo) GetMovements(_ context.Context, filter MovementFilter) ([]entity.StockMovement, error) {
	f.reads++
	var out []entity.StockMovement
	for _, m := range f.moves {
		if filter.ItemID != nil && m.ItemID != *filter.ItemID {
			continue
		}
		if filter.WarehouseID != nil && m.WarehouseID != *filter.WarehouseID {
			continue
		}
		out = append(out, m)
	}
	if f.onRead != nil {
		f.onRead()
	}
	return out, nil
}

type mapCache struct {
	values      map[ledger.StockKey]types.Quantity
	generations map[ledger.StockKey]int64
	failed      bool
}

func newMapCache() *mapCache {
	return &mapCache{
		values:      map[ledger.StockKey]types.Quantity{},
		generations: map[ledger.StockKey]int64{},
	}
}

func (c *mapCache) Get(_ context.Context, key ledger.StockKey) (Cached, error) {
	if c.failed {
		return Cached{}, errors.New("cache down")
	}
	q, ok := c.values[key]
	return Cached{Quantity: q, Hit: ok, Generation: c.generations[key]}, nil
}

func (c *mapCache) Set(_ context.Context, key ledger.StockKey, qty types.Quantity, generation int64) error {
	if c.generations[key] == generation {
		c.values[key] = qty
	}
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, keys []ledger.StockKey) error {
	for _, k := range keys {
		c.generations[k]++
		delete(c.values, k)
	}
	return nil
}

func TestComputeStock_CachesCurrentBalanceOnly(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{moves: []entity.StockMovement{
		move(ledger.KindInward, entity.RecordTypeReceipt, day(2024, 5, 1), 8),
	}}
	cache := newMapCache()
	svc := NewService(repo, cache)

	for range 2 {
		qty, err := svc.ComputeStock(ctx, itemID, warehouseID, nil)
		require.NoError(t, err)
		assert.Equal(t, types.Units(8), qty)
	}
	assert.Equal(t, 1, repo.reads)

	asOf := day(2024, 4, 30)
	qty, err := svc.ComputeStock(ctx, itemID, warehouseID, &asOf)
	require.NoError(t, err)
	assert.True(t, qty.IsZero())
	assert.Equal(t, 2, repo.reads)

	require.NoError(t, svc.Invalidate(ctx, []ledger.StockKey{{ItemID: itemID, WarehouseID: warehouseID}}))
	_, err = svc.ComputeStock(ctx, itemID, warehouseID, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.reads)
}

func TestComputeStock_CacheFailureFallsBack(t *testing.T) {
	repo := &fakeRepo{moves: []entity.StockMovement{
		move(ledger.KindInward, entity.RecordTypeReceipt, day(2024, 5, 1), 3),
	}}
	cache := newMapCache()
	cache.failed = true
	svc := NewService(repo, cache)

	qty, err := svc.ComputeStock(context.Background(), itemID, warehouseID, nil)

	require.NoError(t, err)
	assert.Equal(t, types.Units(3), qty)
}

func TestComputeStock_CommitDuringReadIsNotCached(t *testing.T) {
	ctx := context.Background()
	key := ledger.StockKey{ItemID: itemID, WarehouseID: warehouseID}
	repo := &fakeRepo{moves: []entity.StockMovement{
		move(ledger.KindInward, entity.RecordTypeReceipt, day(2024, 5, 1), 100),
	}}
	cache := newMapCache()
	svc := NewService(repo, cache)

	// a receipt commits and invalidates after the first read took its snapshot
	repo.onRead = func() {
		repo.onRead = nil
		repo.moves = append(repo.moves, move(ledger.KindInward, entity.RecordTypeReceipt, day(2024, 5, 2), 50))
		require.NoError(t, cache.Invalidate(ctx, []ledger.StockKey{key}))
	}

	stale, err := svc.ComputeStock(ctx, itemID, warehouseID, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Units(100), stale)
	_, cached := cache.values[key]
	assert.False(t, cached)

	qty, err := svc.ComputeStock(ctx, itemID, warehouseID, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Units(150), qty)
	assert.Equal(t, 2, repo.reads)

	qty, err = svc.ComputeStock(ctx, itemID, warehouseID, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Units(150), qty)
	assert.Equal(t, 2, repo.reads)
}

func TestComputeItemStock(t *testing.T) {
	other := id.New()
	out := move(ledger.KindTransfer, entity.RecordTypeExpense, day(2024, 5, 1), 5)
	in := move(ledger.KindTransfer, entity.RecordTypeReceipt, day(2024, 5, 1), 5)
	in.WarehouseID = other
	svc := NewService(&fakeRepo{moves: []entity.StockMovement{out, in}}, nil)

	got, err := svc.ComputeItemStock(context.Background(), itemID, nil)

	require.NoError(t, err)
	assert.Len(t, got.Warehouses, 2)
	assert.True(t, got.Total.IsZero())
}
