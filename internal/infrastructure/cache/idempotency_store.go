package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/idempotency"
)

// idempotencyRecord is the JSON value stored under a key.
type idempotencyRecord struct {
	UserID      string             `json:"userId"`
	Operation   string             `json:"operation"`
	Hash        string             `json:"hash"`
	Status      idempotency.Status `json:"status"`
	StatusCode  int                `json:"statusCode,omitempty"`
	ContentType string             `json:"contentType,omitempty"`
	Body        []byte             `json:"body,omitempty"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// IdempotencyStore implements idempotency.Store in Redis so every server
// instance shares the keys. Keys expire with their TTL.
type IdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	now       func() time.Time
}

// NewIdempotencyStore creates a Redis idempotency store.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	return &IdempotencyStore{
		client:    client,
		keyPrefix: KeyPrefix + "idempotency:",
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *IdempotencyStore) redisKey(key string) string {
	return s.keyPrefix + key
}

func (s *IdempotencyStore) load(ctx context.Context, key string) (*idempotencyRecord, error) {
	raw, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load idempotency key: %w", err)
	}
	var rec idempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency key: %w", err)
	}
	return &rec, nil
}

// AcquireKey implements idempotency.Store.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, req idempotency.Request) (*idempotency.Replay, error) {
	pending, err := json.Marshal(idempotencyRecord{
		UserID:    req.UserID,
		Operation: req.Operation,
		Hash:      req.Hash,
		Status:    idempotency.StatusPending,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode idempotency key: %w", err)
	}

	// SETNX with TTL in a single atomic operation
	acquired, err := s.client.SetNX(ctx, s.redisKey(req.Key), pending, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if acquired {
		return nil, nil
	}

	rec, err := s.load(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// expired between SETNX and GET
		return s.AcquireKey(ctx, req)
	}

	replay, reclaim, err := decide(rec, req, s.now())
	if err != nil || !reclaim {
		return replay, err
	}
	if err := s.client.Set(ctx, s.redisKey(req.Key), pending, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("reclaim stale key: %w", err)
	}
	return nil, nil
}

// decide resolves a key that already exists: a replay, a conflict, a
// mismatch, or reclaim when a pending key went stale.
func decide(rec *idempotencyRecord, req idempotency.Request, now time.Time) (*idempotency.Replay, bool, error) {
	if rec.UserID != req.UserID || rec.Operation != req.Operation || rec.Hash != req.Hash {
		return nil, false, apperror.NewIdempotencyMismatch(req.Key).
			WithDetail("stored_operation", rec.Operation).
			WithDetail("request_operation", req.Operation)
	}

	switch rec.Status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		replay := &idempotency.Replay{StatusCode: rec.StatusCode, ContentType: rec.ContentType, Body: rec.Body}
		return replay.Normalize(), false, nil
	}

	if now.Sub(rec.UpdatedAt) <= idempotency.StaleAfter {
		return nil, false, apperror.NewIdempotencyConflict(req.Key)
	}
	return nil, true, nil
}

// CompleteKey implements idempotency.Store.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, status idempotency.Status, resp idempotency.Replay) error {
	rec, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = &idempotencyRecord{}
	}
	rec.Status = status
	rec.StatusCode = resp.StatusCode
	rec.ContentType = resp.ContentType
	rec.Body = resp.Body
	rec.UpdatedAt = s.now()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode idempotency key: %w", err)
	}
	if err := s.client.Set(ctx, s.redisKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// ReleaseKey implements idempotency.Store.
func (s *IdempotencyStore) ReleaseKey(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

var _ idempotency.Store = (*IdempotencyStore)(nil)
