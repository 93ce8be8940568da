package outward

import (
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/ledger"
)

// Repository persists outward headers with their lines.
type Repository = documents.Repository[*Outward]

// Service coordinates outward writes.
type Service = documents.Coordinator[*Outward]

// NewService creates the outward coordinator.
func NewService(repo Repository, deps documents.Deps) *Service {
	return documents.NewCoordinator(documents.Config[*Outward]{
		Deps: deps,
		Kind: ledger.KindOutward,
		Repo: repo,
	})
}
