package tx

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingManager struct {
	calls int
}

func (m *countingManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

func TestRetryPolicy_RetriesContention(t *testing.T) {
	m := &countingManager{}
	p := RetryPolicy{Attempts: 3}

	err := p.Run(context.Background(), m, func(ctx context.Context) error {
		if m.calls < 3 {
			return fmt.Errorf("lock issue line: %w", ErrContention)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, m.calls)
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	m := &countingManager{}
	p := RetryPolicy{Attempts: 2}

	err := p.Run(context.Background(), m, func(ctx context.Context) error {
		return ErrContention
	})

	assert.True(t, IsContention(err))
	assert.Equal(t, 2, m.calls)
}

func TestRetryPolicy_OtherErrorsNotRetried(t *testing.T) {
	m := &countingManager{}
	boom := errors.New("boom")

	err := DefaultRetryPolicy().Run(context.Background(), m, func(ctx context.Context) error {
		return boom
	})

	assert.Equal(t, boom, err)
	assert.Equal(t, 1, m.calls)
}

func TestRetryPolicy_ZeroAttemptsRunsOnce(t *testing.T) {
	m := &countingManager{}
	_ = RetryPolicy{}.Run(context.Background(), m, func(ctx context.Context) error { return ErrContention })
	assert.Equal(t, 1, m.calls)
}
