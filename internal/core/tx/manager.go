// Package tx defines how domain services run work atomically without
// knowing the storage behind them.
package tx

import (
	"context"
	"errors"
)

// ErrContention marks a transaction that lost a lock or snapshot race with a
// concurrent writer. Storage wraps its driver errors with it; RetryPolicy
// re-runs such transactions.
var ErrContention = errors.New("transaction contention")

// Manager runs fn atomically: every write fn makes is kept when it returns
// nil and discarded otherwise. A call made while ctx already carries a
// transaction joins it.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// IsContention reports whether err is a retryable contention failure.
func IsContention(err error) bool {
	return errors.Is(err, ErrContention)
}
