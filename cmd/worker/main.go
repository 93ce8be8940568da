// Package main is the entry point for the stockledger background worker.
// It relays committed ledger events from the outbox to a Redis stream and
// drops the cached balances they touch.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockledger/internal/config"
	"stockledger/internal/infrastructure/cache"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

const streamMaxLen = 100_000

func main() {
	configFile := flag.String("config", "", "path to config file")
	envFile := flag.String("env", "", "path to .env file")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	log = log.WithComponent("worker")

	if !cfg.UsePostgres() {
		log.Fatal("worker requires database.dsn")
	}

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Info("starting stockledger worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.MaxConns = 4
	poolCfg.MinConns = 1
	poolCfg.ApplicationName = "stockledger-worker"
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)

	var handler postgres.OutboxHandler = postgres.OutboxHandlerFunc(logEvent)
	if cfg.Redis.Enabled {
		client, err := cache.NewClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer func() { _ = client.Close() }()
		handler = cache.NewEventStream(client, cfg.Redis.Stream, streamMaxLen, cache.NewStockCache(client, cfg.Redis.CacheTTL))
	} else {
		log.Warn("redis disabled, outbox events are only logged")
	}

	relay := postgres.NewOutboxRelay(txm, postgres.RelayConfig{
		BatchSize:  cfg.Worker.BatchSize,
		MaxRetries: cfg.Worker.MaxRetries,
	}, handler)

	listener := cache.NewOutboxListener(pool.Unwrap())
	listener.Start(ctx)
	defer listener.Stop()

	w := &Worker{
		log:         log,
		relay:       relay,
		idempotency: postgres.NewIdempotencyStore(txm, 0),
		pool:        pool,
		wake:        listener.Wake(),
		cfg:         cfg.Worker,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	<-done
	log.Info("worker stopped")
}

func logEvent(ctx context.Context, msg *postgres.OutboxMessage) error {
	logger.Info(ctx, "ledger event", "event_type", msg.EventType, "document", msg.AggregateID)
	return nil
}

// Worker drains the outbox and runs periodic housekeeping.
type Worker struct {
	log         *logger.Logger
	relay       *postgres.OutboxRelay
	idempotency *postgres.IdempotencyStore
	pool        *postgres.Pool
	wake        <-chan struct{}
	cfg         config.WorkerConfig
}

// Run processes the outbox until ctx is cancelled. A notification triggers
// an immediate pass; the poll interval covers missed notifications.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(time.Hour)
	defer cleanupTicker.Stop()

	w.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
			w.drain(ctx)
		case <-ticker.C:
			w.drain(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

// drain processes full batches until the outbox is empty.
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n > 0 {
			w.log.Debugw("published outbox batch", "count", n)
		}
		if n < w.cfg.BatchSize {
			return
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if n, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("move to dead letter queue failed", "error", err)
	} else if n > 0 {
		w.log.Warnw("moved failed events to dead letter queue", "count", n)
	}

	if n, err := w.relay.PurgePublished(ctx, w.cfg.Retention); err != nil {
		w.log.Errorw("purge outbox failed", "error", err)
	} else if n > 0 {
		w.log.Infow("purged published events", "count", n)
	}

	if n, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("cleanup idempotency keys failed", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}

	postgres.LogPoolStats(ctx, w.pool.Unwrap())
}
