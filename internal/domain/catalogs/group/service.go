package group

import (
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
)

// Repository defines the interface for Group persistence.
type Repository interface {
	domain.CatalogRepository[*Group]
}

// Service provides business logic for groups.
type Service struct {
	*domain.CatalogService[*Group]
}

// NewService creates a new Group service. Group names are unique.
func NewService(repo Repository, txm tx.Manager, usage domain.UsageChecker) *Service {
	return &Service{
		CatalogService: domain.NewCatalogService(domain.CatalogServiceConfig[*Group]{
			Repo:       repo,
			TxManager:  txm,
			Usage:      usage,
			EntityName: domain.CatalogGroup,
			UniqueName: true,
		}),
	}
}
