package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"stockledger/pkg/logger"
)

// OutboxChannel is the NOTIFY channel raised by inserts into sys_outbox.
const OutboxChannel = "sys_outbox"

// OutboxListener wakes the relay when new outbox rows are committed, so
// events are delivered without waiting for the next poll.
type OutboxListener struct {
	pool *pgxpool.Pool
	wake chan struct{}

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewOutboxListener creates a listener.
func NewOutboxListener(pool *pgxpool.Pool) *OutboxListener {
	return &OutboxListener{
		pool: pool,
		wake: make(chan struct{}, 1),
	}
}

// Wake receives a value after each notification. Bursts are coalesced.
func (l *OutboxListener) Wake() <-chan struct{} {
	return l.wake
}

// Start begins listening in the background.
func (l *OutboxListener) Start(ctx context.Context) {
	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()
	if l.started {
		return
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	l.wg.Add(1)
	go l.listenLoop()
	logger.Info(l.ctx, "outbox listener started")
}

// Stop gracefully stops the listener.
func (l *OutboxListener) Stop() {
	l.lifecycleMu.Lock()
	if !l.started {
		l.lifecycleMu.Unlock()
		return
	}
	cancel := l.cancel
	l.started = false
	l.cancel = nil
	l.lifecycleMu.Unlock()

	cancel()
	l.wg.Wait()
	logger.Info(context.Background(), "outbox listener stopped")
}

// listenLoop keeps a dedicated connection subscribed, reconnecting on failure.
func (l *OutboxListener) listenLoop() {
	defer l.wg.Done()

	for l.ctx.Err() == nil {
		conn, err := l.pool.Acquire(l.ctx)
		if err != nil {
			logger.Error(l.ctx, "failed to acquire connection for LISTEN", "error", err)
			l.pause()
			continue
		}

		if _, err := conn.Exec(l.ctx, "LISTEN "+OutboxChannel); err != nil {
			logger.Error(l.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			l.pause()
			continue
		}

		l.waitForNotifications(conn)
		conn.Release()
	}
}

func (l *OutboxListener) pause() {
	select {
	case <-l.ctx.Done():
	case <-time.After(time.Second):
	}
}

// waitForNotifications blocks until the context ends or the connection fails.
func (l *OutboxListener) waitForNotifications(conn *pgxpool.Conn) {
	for {
		ctx, cancel := context.WithTimeout(l.ctx, 30*time.Second)
		n, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			if ctx.Err() != nil {
				// timeout is expected, keep listening
				continue
			}
			logger.Warn(l.ctx, "outbox notification wait failed", "error", err)
			return
		}

		logger.Debug(l.ctx, "outbox notification", "payload", n.Payload)
		l.signal()
	}
}

func (l *OutboxListener) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
