// Package idempotency defines the contract for replaying repeated write requests.
package idempotency

import (
	"context"
	"net/http"
	"time"
)

// DefaultTTL is how long a completed response stays replayable.
const DefaultTTL = 24 * time.Hour

// StaleAfter is how long a pending key may stay unfinished before another
// request may reclaim it.
const StaleAfter = time.Minute

// Status is the state of a key.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Request identifies one use of a key.
type Request struct {
	Key       string
	UserID    string
	Operation string
	Hash      string
}

// Replay is a stored response returned instead of running the request again.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Normalize fills defaults for records stored without a status or content type.
func (r *Replay) Normalize() *Replay {
	if r.StatusCode == 0 {
		r.StatusCode = http.StatusOK
	}
	if r.ContentType == "" {
		r.ContentType = "application/json; charset=utf-8"
	}
	return r
}

// Store keeps idempotency keys.
//
// AcquireKey returns (nil, nil) when the caller now owns the key, a Replay
// when the key already finished, an IDEMPOTENCY_CONFLICT error while another
// request holds it, and IDEMPOTENCY_KEY_REUSED when the key was used for a
// different user, operation or body.
type Store interface {
	AcquireKey(ctx context.Context, req Request) (*Replay, error)
	// CompleteKey stores the response of a finished request.
	CompleteKey(ctx context.Context, key string, status Status, resp Replay) error
	// ReleaseKey forgets a key so the request may run again.
	ReleaseKey(ctx context.Context, key string) error
}
