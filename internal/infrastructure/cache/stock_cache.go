package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"stockledger/internal/core/types"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/registers/stock"
)

// DefaultStockTTL bounds how long a balance may be served without a commit
// touching its key.
const DefaultStockTTL = 10 * time.Minute

// generationTTL keeps invalidation counters well past any in-flight read.
const generationTTL = 24 * time.Hour

// setIfGeneration writes KEYS[1] only while the counter in KEYS[2] still
// reads ARGV[2]. A missing counter reads as 0.
var setIfGeneration = redis.NewScript(`
local gen = redis.call("GET", KEYS[2])
if not gen then gen = "0" end
if gen ~= ARGV[2] then return 0 end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

// StockCache keeps current balances per (item, warehouse) in Redis.
// Quantities are stored as their scaled integer. Each balance has a
// generation counter that Invalidate increments.
type StockCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStockCache creates a stock cache.
func NewStockCache(client *redis.Client, ttl time.Duration) *StockCache {
	if ttl <= 0 {
		ttl = DefaultStockTTL
	}
	return &StockCache{client: client, ttl: ttl}
}

// StockKey is the Redis key of a balance.
func StockKey(key ledger.StockKey) string {
	return KeyPrefix + "stock:" + key.ItemID.String() + ":" + key.WarehouseID.String()
}

// GenerationKey is the Redis key of a balance's invalidation counter.
func GenerationKey(key ledger.StockKey) string {
	return KeyPrefix + "stockgen:" + key.ItemID.String() + ":" + key.WarehouseID.String()
}

// Get implements stock.Cache. The balance and its generation are read in
// one round trip.
func (c *StockCache) Get(ctx context.Context, key ledger.StockKey) (stock.Cached, error) {
	vals, err := c.client.MGet(ctx, StockKey(key), GenerationKey(key)).Result()
	if err != nil {
		return stock.Cached{}, fmt.Errorf("get cached stock: %w", err)
	}
	return parseCached(vals)
}

// parseCached decodes an MGET reply of (balance, generation).
func parseCached(vals []any) (stock.Cached, error) {
	if len(vals) != 2 {
		return stock.Cached{}, fmt.Errorf("get cached stock: %d values in reply", len(vals))
	}

	var out stock.Cached
	if raw, ok := vals[1].(string); ok {
		gen, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return stock.Cached{}, fmt.Errorf("parse stock generation %q: %w", raw, err)
		}
		out.Generation = gen
	}
	if raw, ok := vals[0].(string); ok {
		// a corrupt entry is a miss; the caller recomputes and overwrites it
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			out.Quantity = types.Quantity(n)
			out.Hit = true
		}
	}
	return out, nil
}

// Set implements stock.Cache. Nothing is written if the key was invalidated
// after generation was read.
func (c *StockCache) Set(ctx context.Context, key ledger.StockKey, qty types.Quantity, generation int64) error {
	err := setIfGeneration.Run(ctx, c.client,
		[]string{StockKey(key), GenerationKey(key)},
		strconv.FormatInt(int64(qty), 10),
		strconv.FormatInt(generation, 10),
		c.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("set cached stock: %w", err)
	}
	return nil
}

// Invalidate implements stock.Cache and documents.StockInvalidator. Each key's
// generation is bumped and its balance dropped in one transaction.
func (c *StockCache) Invalidate(ctx context.Context, keys []ledger.StockKey) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		names := make([]string, len(keys))
		for i, k := range keys {
			gen := GenerationKey(k)
			pipe.Incr(ctx, gen)
			pipe.Expire(ctx, gen, generationTTL)
			names[i] = StockKey(k)
		}
		pipe.Del(ctx, names...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate cached stock: %w", err)
	}
	return nil
}

var (
	_ stock.Cache                = (*StockCache)(nil)
	_ documents.StockInvalidator = (*StockCache)(nil)
)
