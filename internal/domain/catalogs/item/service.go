package item

import (
	"context"
	"fmt"
	"strings"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
)

// Repository defines the interface for Item persistence.
// Create, Update and GetByID carry the identifier sets along with the item.
type Repository interface {
	domain.CatalogRepository[*Item]

	// GetByBarcode finds the item owning barcode.
	GetByBarcode(ctx context.Context, barcode string) (*Item, error)

	// Search matches query against name, code, aliases and part numbers.
	Search(ctx context.Context, query string, limit int) ([]*Item, error)

	// IdentifierOwner returns the item using value for kind, if any other than exclude.
	IdentifierOwner(ctx context.Context, kind IdentifierKind, value string, exclude id.ID) (*id.ID, error)
}

// GroupChecker confirms that a group exists.
type GroupChecker interface {
	Exists(ctx context.Context, groupID id.ID) (bool, error)
}

// Service provides business logic for items.
type Service struct {
	*domain.CatalogService[*Item]
	repo   Repository
	groups GroupChecker
}

// NewService creates a new Item service.
func NewService(repo Repository, groups GroupChecker, txm tx.Manager, usage domain.UsageChecker) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Item]{
		Repo:       repo,
		TxManager:  txm,
		Usage:      usage,
		EntityName: domain.CatalogItem,
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		groups:         groups,
	}

	base.Hooks().OnBeforeCreate(svc.checkReferences)
	base.Hooks().OnBeforeUpdate(svc.checkReferences)

	return svc
}

var fieldByKind = map[IdentifierKind]string{
	KindAlias:      "aliases",
	KindPartNumber: "partNumbers",
	KindBarcode:    "barcodes",
}

// checkReferences verifies the group exists and no identifier is owned by another item.
func (s *Service) checkReferences(ctx context.Context, it *Item) error {
	var fe apperror.FieldErrors

	ok, err := s.groups.Exists(ctx, it.GroupID)
	if err != nil {
		return fmt.Errorf("check item group: %w", err)
	}
	if !ok {
		fe.Add("groupId", apperror.CodeNotFound, "group not found")
	}

	for kind, values := range it.Identifiers() {
		for n, v := range values {
			owner, err := s.repo.IdentifierOwner(ctx, kind, v, it.ID)
			if err != nil {
				return fmt.Errorf("check item %s: %w", kind, err)
			}
			if owner != nil {
				fe.Addf(fmt.Sprintf("%s[%d]", fieldByKind[kind], n), apperror.CodeDuplicate,
					"%s %q already belongs to item %s", kind, v, owner)
			}
		}
	}
	return fe.Err()
}

// GetByBarcode finds an item by one of its barcodes.
func (s *Service) GetByBarcode(ctx context.Context, barcode string) (*Item, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, apperror.NewFieldError("barcode", apperror.CodeRequired, "barcode is required")
	}
	it, err := s.repo.GetByBarcode(ctx, barcode)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound(domain.CatalogItem, barcode).WithDetail("barcode", barcode)
		}
		return nil, err
	}
	return it, nil
}

// Search returns up to limit items matching query.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*Item{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.Search(ctx, query, limit)
}
