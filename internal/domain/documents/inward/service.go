package inward

import (
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/ledger"
)

// Repository persists inward headers with their lines.
type Repository = documents.Repository[*Inward]

// Service coordinates inward writes.
type Service = documents.Coordinator[*Inward]

// NewService creates the inward coordinator.
func NewService(repo Repository, deps documents.Deps) *Service {
	return documents.NewCoordinator(documents.Config[*Inward]{
		Deps: deps,
		Kind: ledger.KindInward,
		Repo: repo,
	})
}
