package production

import (
	"stockledger/internal/core/numerator"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/ledger"
)

// ReferencePrefix starts generated production reference numbers.
const ReferencePrefix = "PRD"

// Repository persists production runs.
type Repository interface {
	documents.Repository[*Production]
	documents.ReferenceIndex
}

// Service coordinates production writes.
type Service = documents.Coordinator[*Production]

// NewService creates the production coordinator. Lines without a type are
// classified by classifier; numbers may be nil when references are always supplied.
func NewService(repo Repository, deps documents.Deps, classifier Classifier, numbers numerator.Generator, opts *numerator.Options) *Service {
	svc := documents.NewCoordinator(documents.Config[*Production]{
		Deps: deps,
		Kind: ledger.KindProduction,
		Repo: repo,
		Rules: documents.Chain[*Production]{
			Classify{Classifier: classifier},
			documents.UniqueReference[*Production]{Index: repo, Field: "referenceNo"},
		},
	})
	if numbers != nil {
		svc.Hooks().OnBeforeCreate(documents.AssignReference[*Production](numbers, numerator.DefaultConfig(ReferencePrefix), opts))
	}
	return svc
}
