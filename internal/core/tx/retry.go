package tx

import (
	"context"
	"time"
)

// RetryPolicy bounds how often a transaction is re-run after contention.
type RetryPolicy struct {
	// Attempts is the total number of runs, including the first. Values < 1 mean 1.
	Attempts int
	// Backoff is the pause before the second run; it doubles on every further run.
	Backoff time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: 20 * time.Millisecond}
}

// Run executes fn inside a transaction of m, re-running it while it fails
// with ErrContention and attempts remain. Any other error returns at once.
// The error of the last attempt is returned when attempts are exhausted;
// callers distinguish that case with IsContention.
func (p RetryPolicy) Run(ctx context.Context, m Manager, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Backoff

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 && backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		err = m.RunInTransaction(ctx, fn)
		if !IsContention(err) {
			return err
		}
	}
	return err
}
