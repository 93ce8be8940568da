package warehouse

import (
	"context"
	"fmt"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
)

// Repository defines the interface for Warehouse persistence.
type Repository interface {
	domain.CatalogRepository[*Warehouse]

	// Children returns the direct children of parentID.
	Children(ctx context.Context, parentID id.ID) ([]*Warehouse, error)
}

// Service provides business logic for Warehouse catalog.
type Service struct {
	*domain.CatalogService[*Warehouse]
	repo Repository
}

// NewService creates a new Warehouse service.
func NewService(repo Repository, txm tx.Manager, usage domain.UsageChecker) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Warehouse]{
		Repo:       repo,
		TxManager:  txm,
		Usage:      usage,
		EntityName: domain.CatalogWarehouse,
		UniqueName: true,
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
	}

	base.Hooks().OnBeforeCreate(svc.checkParent)
	base.Hooks().OnBeforeUpdate(svc.checkParent)

	return svc
}

// maxDepth bounds the parent walk so corrupted data cannot loop forever.
const maxDepth = 64

// checkParent verifies the parent exists and is not a descendant of wh.
func (s *Service) checkParent(ctx context.Context, wh *Warehouse) error {
	if wh.ParentID == nil {
		return nil
	}

	current := *wh.ParentID
	for depth := 0; depth < maxDepth; depth++ {
		if current == wh.ID {
			return apperror.NewFieldError("parentId", apperror.CodeInvalid,
				"parent warehouse is a descendant of this warehouse")
		}
		parent, err := s.repo.GetByID(ctx, current)
		if err != nil {
			if apperror.IsNotFound(err) {
				if depth == 0 {
					return apperror.NewFieldError("parentId", apperror.CodeNotFound, "parent warehouse not found")
				}
				return nil
			}
			return fmt.Errorf("load parent warehouse: %w", err)
		}
		if parent.ParentID == nil {
			return nil
		}
		current = *parent.ParentID
	}
	return apperror.NewFieldError("parentId", apperror.CodeInvalid, "warehouse tree is too deep")
}

// Children returns the direct children of a warehouse.
func (s *Service) Children(ctx context.Context, parentID id.ID) ([]*Warehouse, error) {
	return s.repo.Children(ctx, parentID)
}
