package adjustment

import (
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/ledger"
)

// Repository persists adjustments.
type Repository = documents.Repository[*Adjustment]

// Service coordinates adjustment writes.
type Service = documents.Coordinator[*Adjustment]

// NewService creates the adjustment coordinator.
func NewService(repo Repository, deps documents.Deps) *Service {
	return documents.NewCoordinator(documents.Config[*Adjustment]{
		Deps: deps,
		Kind: ledger.KindAdjustment,
		Repo: repo,
	})
}
