package transfer

import (
	"stockledger/internal/core/numerator"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/ledger"
)

// ReferencePrefix starts generated transfer reference numbers.
const ReferencePrefix = "TRF"

// Repository persists transfers.
type Repository interface {
	documents.Repository[*Transfer]
	documents.ReferenceIndex
}

// Service coordinates transfer writes.
type Service = documents.Coordinator[*Transfer]

// NewService creates the transfer coordinator.
func NewService(repo Repository, deps documents.Deps, numbers numerator.Generator, opts *numerator.Options) *Service {
	svc := documents.NewCoordinator(documents.Config[*Transfer]{
		Deps:  deps,
		Kind:  ledger.KindTransfer,
		Repo:  repo,
		Rules: documents.UniqueReference[*Transfer]{Index: repo, Field: "referenceNo"},
	})
	if numbers != nil {
		svc.Hooks().OnBeforeCreate(documents.AssignReference[*Transfer](numbers, numerator.DefaultConfig(ReferencePrefix), opts))
	}
	return svc
}
