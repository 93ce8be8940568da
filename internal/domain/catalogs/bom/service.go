package bom

import (
	"context"
	"fmt"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain"
	"stockledger/pkg/logger"
)

// Repository defines the interface for BOM persistence.
// Create, Update and reads carry the component list.
type Repository interface {
	Create(ctx context.Context, b *BillOfMaterial) error
	Update(ctx context.Context, b *BillOfMaterial) error
	Delete(ctx context.Context, bomID id.ID) error
	GetByID(ctx context.Context, bomID id.ID) (*BillOfMaterial, error)
	GetByItem(ctx context.Context, itemID id.ID) (*BillOfMaterial, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*BillOfMaterial], error)
}

// Service manages bills of materials.
type Service struct {
	repo  Repository
	items domain.ExistenceChecker
	txm   tx.Manager
}

// NewService creates a BOM service.
func NewService(repo Repository, items domain.ExistenceChecker, txm tx.Manager) *Service {
	return &Service{repo: repo, items: items, txm: txm}
}

func (s *Service) check(ctx context.Context, b *BillOfMaterial) error {
	if err := b.Validate(ctx); err != nil {
		return err
	}

	ids := make([]id.ID, 0, len(b.Components)+1)
	ids = append(ids, b.ItemID)
	for _, c := range b.Components {
		ids = append(ids, c.ItemID)
	}
	missing, err := s.items.Missing(ctx, domain.CatalogItem, ids)
	if err != nil {
		return fmt.Errorf("check bom items: %w", err)
	}
	absent := make(map[id.ID]bool, len(missing))
	for _, m := range missing {
		absent[m] = true
	}

	var fe apperror.FieldErrors
	if absent[b.ItemID] {
		fe.Add("itemId", apperror.CodeNotFound, "item not found")
	}
	for n, c := range b.Components {
		if absent[c.ItemID] {
			fe.Add(fmt.Sprintf("components[%d].itemId", n), apperror.CodeNotFound, "item not found")
		}
	}

	existing, err := s.repo.GetByItem(ctx, b.ItemID)
	switch {
	case err == nil && existing.ID != b.ID:
		fe.Add("itemId", apperror.CodeDuplicate, "item already has a bill of materials")
	case err != nil && !apperror.IsNotFound(err):
		return fmt.Errorf("check bom uniqueness: %w", err)
	}
	return fe.Err()
}

// Create stores a new BOM.
func (s *Service) Create(ctx context.Context, b *BillOfMaterial) error {
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.check(ctx, b); err != nil {
			return err
		}
		return s.repo.Create(ctx, b)
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "bill of materials created", "bom_id", b.ID, "item_id", b.ItemID)
	return nil
}

// Update replaces the component list of a BOM.
func (s *Service) Update(ctx context.Context, b *BillOfMaterial) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.check(ctx, b); err != nil {
			return err
		}
		return s.repo.Update(ctx, b)
	})
}

// Delete removes a BOM.
func (s *Service) Delete(ctx context.Context, bomID id.ID) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.GetByID(ctx, bomID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, bomID)
	})
}

// GetByID returns a BOM.
func (s *Service) GetByID(ctx context.Context, bomID id.ID) (*BillOfMaterial, error) {
	b, err := s.repo.GetByID(ctx, bomID)
	if apperror.IsNotFound(err) {
		return nil, apperror.NewNotFound(domain.CatalogBOM, bomID.String())
	}
	return b, err
}

// GetByItem returns the BOM of an item.
func (s *Service) GetByItem(ctx context.Context, itemID id.ID) (*BillOfMaterial, error) {
	b, err := s.repo.GetByItem(ctx, itemID)
	if apperror.IsNotFound(err) {
		return nil, apperror.NewNotFound(domain.CatalogBOM, itemID.String()).WithDetail("item_id", itemID)
	}
	return b, err
}

// List returns BOMs.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*BillOfMaterial], error) {
	return s.repo.List(ctx, filter)
}

// Explode returns component requirements for producing quantity units of the BOM's item.
func (s *Service) Explode(ctx context.Context, bomID id.ID, quantity types.Quantity) ([]Requirement, error) {
	if !quantity.IsPositive() {
		return nil, apperror.NewFieldError("quantity", apperror.CodeInvalid, "quantity must be greater than 0")
	}
	b, err := s.GetByID(ctx, bomID)
	if err != nil {
		return nil, err
	}
	return b.Explode(quantity), nil
}
