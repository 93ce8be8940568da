package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/idempotency"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/period"
)

func TestAuditService_CompressesLargeChanges(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	small := auditRow{Entry: audit.Entry{Changes: []byte(`{"name":"Bolt"}`)}}
	svc.pack(&small)
	assert.Equal(t, CompressionNone, small.CompressionAlgo)
	assert.Nil(t, small.ChangesCompressed)

	large := bytes.Repeat([]byte("a"), DefaultCompressThreshold+1)
	row := auditRow{Entry: audit.Entry{Changes: large}}
	svc.pack(&row)
	require.Equal(t, CompressionZstd, row.CompressionAlgo)
	assert.Nil(t, row.Changes)
	assert.Less(t, len(row.ChangesCompressed), len(large))

	require.NoError(t, svc.unpack(&row))
	assert.Equal(t, large, []byte(row.Changes))
	assert.Nil(t, row.ChangesCompressed)
}

func TestPeriodRepo_Queries(t *testing.T) {
	r := NewPeriodRepo(nil)

	sql, args, err := r.getQuery(true).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT name, start_date, end_date, updated_at, updated_by FROM sys_period WHERE name = $1 FOR SHARE", sql)
	assert.Equal(t, []any{period.ActiveName}, args)

	sql, _, err = r.getQuery(false).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "FOR SHARE")

	p, err := period.New(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	sql, args, err = r.saveQuery(p).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "INSERT INTO sys_period (name,start_date,end_date,updated_at,updated_by) VALUES ($1,$2,$3,$4,$5) ON CONFLICT (name) DO UPDATE")
	assert.Equal(t, "2026-04-01", args[1])
	assert.Equal(t, "2027-03-31", args[2])
}

func TestOutboxMessage_Event(t *testing.T) {
	ev := documents.Event{
		Kind:       ledger.KindTransfer,
		DocumentID: id.New(),
		Op:         documents.OpUpdate,
		Keys:       []ledger.StockKey{{ItemID: id.New(), WarehouseID: id.New()}},
		OccurredAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "transfer.update", EventType(ev))

	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	msg := &OutboxMessage{ID: id.New(), Payload: payload}
	got, err := msg.Event()
	require.NoError(t, err)
	assert.Equal(t, ev.DocumentID, got.DocumentID)
	assert.Equal(t, ev.Keys, got.Keys)

	_, err = (&OutboxMessage{Payload: []byte("{")}).Event()
	assert.Error(t, err)
}

func TestIdempotencyStore_Resolve(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &IdempotencyStore{now: func() time.Time { return now }}
	req := idempotency.Request{Key: "k1", UserID: "u1", Operation: "POST /api/v1/inwards", Hash: "h"}
	stored := IdempotencyRecord{
		Key:         "k1",
		UserID:      "u1",
		Operation:   req.Operation,
		RequestHash: "h",
		Status:      idempotency.StatusSuccess,
		Response:    []byte(`{"id":"x"}`),
		StatusCode:  http.StatusCreated,
		UpdatedAt:   now,
	}

	replay, err := s.resolve(context.Background(), stored, req)
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, http.StatusCreated, replay.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", replay.ContentType)

	other := req
	other.Hash = "different"
	_, err = s.resolve(context.Background(), stored, other)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeIdempotencyMismatch, appErr.Code)

	pending := stored
	pending.Status = idempotency.StatusPending
	_, err = s.resolve(context.Background(), pending, req)
	appErr, ok = apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeIdempotency, appErr.Code)
}
