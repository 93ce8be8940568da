package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

// DefaultStream is the Redis stream ledger events are appended to.
const DefaultStream = KeyPrefix + "events"

// EventStream relays outbox messages to a Redis stream and drops the cached
// balances they touch. It implements postgres.OutboxHandler.
type EventStream struct {
	client *redis.Client
	stream string
	maxLen int64
	stock  *StockCache
}

// NewEventStream creates a relay handler. stock may be nil.
func NewEventStream(client *redis.Client, stream string, maxLen int64, stock *StockCache) *EventStream {
	if stream == "" {
		stream = DefaultStream
	}
	return &EventStream{client: client, stream: stream, maxLen: maxLen, stock: stock}
}

// streamArgs maps a message to its stream entry.
func (s *EventStream) streamArgs(msg *postgres.OutboxMessage) *redis.XAddArgs {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"id":         msg.ID.String(),
			"event_type": msg.EventType,
			"kind":       msg.AggregateType,
			"document":   msg.AggregateID.String(),
			"payload":    string(msg.Payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	return args
}

// Handle implements postgres.OutboxHandler.
func (s *EventStream) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	ev, err := msg.Event()
	if err != nil {
		return err
	}

	if err := s.client.XAdd(ctx, s.streamArgs(msg)).Err(); err != nil {
		return fmt.Errorf("append to %s: %w", s.stream, err)
	}

	if s.stock != nil && len(ev.Keys) > 0 {
		if err := s.stock.Invalidate(ctx, ev.Keys); err != nil {
			// entries expire on their own; the event is already delivered
			logger.Warn(ctx, "stock cache invalidation failed", "event", msg.EventType, "error", err)
		}
	}
	return nil
}

var _ postgres.OutboxHandler = (*EventStream)(nil)
