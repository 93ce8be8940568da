package cache

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/idempotency"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/storage/postgres"
)

func TestStockKey(t *testing.T) {
	key := ledger.StockKey{ItemID: id.New(), WarehouseID: id.New()}
	assert.Equal(t, "stockledger:stock:"+key.ItemID.String()+":"+key.WarehouseID.String(), StockKey(key))
	assert.Equal(t, "stockledger:stockgen:"+key.ItemID.String()+":"+key.WarehouseID.String(), GenerationKey(key))
}

func TestParseCached(t *testing.T) {
	tests := []struct {
		name    string
		vals    []any
		want    stock.Cached
		wantErr bool
	}{
		{name: "cold key", vals: []any{nil, nil}, want: stock.Cached{}},
		{name: "miss after invalidation", vals: []any{nil, "3"}, want: stock.Cached{Generation: 3}},
		{name: "hit", vals: []any{"1500", "3"}, want: stock.Cached{Quantity: 1500, Hit: true, Generation: 3}},
		{name: "corrupt balance is a miss", vals: []any{"x", "2"}, want: stock.Cached{Generation: 2}},
		{name: "corrupt generation", vals: []any{"1", "x"}, wantErr: true},
		{name: "short reply", vals: []any{"1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCached(tt.vals)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecide(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	req := idempotency.Request{Key: "k", UserID: "u1", Operation: "POST /api/v1/transfers", Hash: "abc"}
	base := idempotencyRecord{UserID: "u1", Operation: req.Operation, Hash: "abc", UpdatedAt: now}

	tests := []struct {
		name        string
		mutate      func(r *idempotencyRecord)
		wantReplay  bool
		wantReclaim bool
		wantCode    string
	}{
		{
			name: "completed replays",
			mutate: func(r *idempotencyRecord) {
				r.Status = idempotency.StatusSuccess
				r.StatusCode = http.StatusCreated
				r.Body = []byte(`{}`)
			},
			wantReplay: true,
		},
		{
			name: "failed replays",
			mutate: func(r *idempotencyRecord) {
				r.Status = idempotency.StatusFailed
				r.StatusCode = http.StatusBadRequest
			},
			wantReplay: true,
		},
		{
			name:     "in flight conflicts",
			mutate:   func(r *idempotencyRecord) { r.Status = idempotency.StatusPending },
			wantCode: apperror.CodeIdempotency,
		},
		{
			name: "stale pending is reclaimed",
			mutate: func(r *idempotencyRecord) {
				r.Status = idempotency.StatusPending
				r.UpdatedAt = now.Add(-2 * idempotency.StaleAfter)
			},
			wantReclaim: true,
		},
		{
			name:     "different body is rejected",
			mutate:   func(r *idempotencyRecord) { r.Hash = "other" },
			wantCode: apperror.CodeIdempotencyMismatch,
		},
		{
			name:     "different user is rejected",
			mutate:   func(r *idempotencyRecord) { r.UserID = "u2" },
			wantCode: apperror.CodeIdempotencyMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := base
			tt.mutate(&rec)

			replay, reclaim, err := decide(&rec, req, now)
			if tt.wantCode != "" {
				appErr, ok := apperror.AsAppError(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantCode, appErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantReclaim, reclaim)
			assert.Equal(t, tt.wantReplay, replay != nil)
			if replay != nil {
				assert.Equal(t, rec.StatusCode, replay.StatusCode)
				assert.NotEmpty(t, replay.ContentType)
			}
		})
	}
}

func TestEventStream_Args(t *testing.T) {
	s := NewEventStream(nil, "", 1000, nil)
	msg := &postgres.OutboxMessage{
		ID:            id.New(),
		AggregateType: "inward",
		AggregateID:   id.New(),
		EventType:     "inward.create",
		Payload:       []byte(`{"kind":"inward"}`),
	}

	args := s.streamArgs(msg)
	assert.Equal(t, DefaultStream, args.Stream)
	assert.Equal(t, int64(1000), args.MaxLen)
	assert.True(t, args.Approx)

	values := args.Values.(map[string]any)
	assert.Equal(t, "inward.create", values["event_type"])
	assert.Equal(t, msg.AggregateID.String(), values["document"])
	assert.Equal(t, `{"kind":"inward"}`, values["payload"])
}
