package contact

import (
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
)

// Repository defines the interface for Contact persistence.
type Repository interface {
	domain.CatalogRepository[*Contact]
}

// Service provides business logic for contacts.
type Service struct {
	*domain.CatalogService[*Contact]
}

// NewService creates a new Contact service.
func NewService(repo Repository, txm tx.Manager, usage domain.UsageChecker) *Service {
	return &Service{
		CatalogService: domain.NewCatalogService(domain.CatalogServiceConfig[*Contact]{
			Repo:       repo,
			TxManager:  txm,
			Usage:      usage,
			EntityName: domain.CatalogContact,
		}),
	}
}
