package period

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/tx"
	"stockledger/pkg/logger"
)

// Repository stores the active period.
type Repository interface {
	// Get returns the active period, or a NotFound error when none is stored.
	Get(ctx context.Context) (*Period, error)
	// Save replaces the active period.
	Save(ctx context.Context, p *Period) error
}

// Service reads and changes the active period.
type Service struct {
	repo Repository
	txm  tx.Manager
}

// NewService creates a period service.
func NewService(repo Repository, txm tx.Manager) *Service {
	return &Service{repo: repo, txm: txm}
}

// Active implements Provider.
func (s *Service) Active(ctx context.Context) (*Period, error) {
	p, err := s.repo.Get(ctx)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// SetActive replaces the active period. Already recorded transactions are not re-validated.
func (s *Service) SetActive(ctx context.Context, start, end time.Time) (*Period, error) {
	p, err := New(start, end)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now().UTC()
	p.UpdatedBy = appctx.GetUserID(ctx)

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Save(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "active period changed",
		"start", p.Start.Format(time.DateOnly),
		"end", p.End.Format(time.DateOnly))
	return p, nil
}
