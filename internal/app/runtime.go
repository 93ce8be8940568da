package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"stockledger/internal/config"
	"stockledger/internal/core/id"
	"stockledger/internal/core/idempotency"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/infrastructure/cache"
	"stockledger/internal/infrastructure/storage/memory"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/pgstore"
	"stockledger/pkg/logger"
)

// OptionsFromConfig maps the ledger section of the configuration to service options.
func OptionsFromConfig(c config.LedgerConfig) (Options, error) {
	produced, err := parseIDs(c.ProducedGroups)
	if err != nil {
		return Options{}, fmt.Errorf("produced_groups: %w", err)
	}
	consumed, err := parseIDs(c.ConsumedGroups)
	if err != nil {
		return Options{}, fmt.Errorf("consumed_groups: %w", err)
	}
	return Options{
		Retry:          tx.RetryPolicy{Attempts: c.RetryAttempts, Backoff: c.RetryBackoff},
		Numbering:      &numerator.Options{Strategy: numerator.ParseStrategy(c.Numbering)},
		Classifier:     c.Classifier,
		ProducedGroups: produced,
		ConsumedGroups: consumed,
		Expression:     c.Expression,
	}, nil
}

func parseIDs(values []string) ([]id.ID, error) {
	out := make([]id.ID, 0, len(values))
	for _, v := range values {
		parsed, err := id.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", v, err)
		}
		out = append(out, parsed)
	}
	return out, nil
}

// Runtime is the assembled process state shared by the binaries.
type Runtime struct {
	Services *Services

	// Pool is nil on the in-memory store.
	Pool *postgres.Pool
	// Redis is nil unless enabled.
	Redis       *redis.Client
	StockCache  *cache.StockCache
	Idempotency idempotency.Store

	closers []func()
}

// Open connects the configured storage and builds the services. Without a
// database DSN the services run over an in-process store.
func Open(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	opts, err := OptionsFromConfig(cfg.Ledger)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{}
	if cfg.Redis.Enabled {
		client, err := cache.NewClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		rt.Redis = client
		rt.closers = append(rt.closers, func() { _ = client.Close() })
		rt.StockCache = cache.NewStockCache(client, cfg.Redis.CacheTTL)
		rt.Idempotency = cache.NewIdempotencyStore(client, idempotency.DefaultTTL)
		opts.Cache = rt.StockCache
		logger.Info(ctx, "redis connected", "addr", cfg.Redis.Addr)
	}

	var backend Backend
	if cfg.UsePostgres() {
		if cfg.Database.AutoMigrate {
			if err := Migrate(ctx, cfg.Database.DSN); err != nil {
				rt.Close()
				return nil, err
			}
		}

		poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
		poolCfg.MaxConns = cfg.Database.MaxConns
		poolCfg.MinConns = cfg.Database.MinConns
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Pool = pool
		rt.closers = append(rt.closers, pool.Close)

		store, err := pgstore.New(postgres.NewTxManager(pool))
		if err != nil {
			rt.Close()
			return nil, err
		}
		if rt.Idempotency == nil {
			rt.Idempotency = store.Idempotency
		}
		backend = PostgresBackend(store)
		logger.Info(ctx, "postgres connected", "max_conns", poolCfg.MaxConns)
	} else {
		backend = MemoryBackend(memory.New())
		logger.Warn(ctx, "no database configured, using in-memory store")
	}

	rt.Services, err = Build(backend, opts)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// Migrate applies every pending migration to the database at dsn.
func Migrate(ctx context.Context, dsn string) error {
	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up(ctx)
}

// Close releases connections in reverse order of opening.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}
