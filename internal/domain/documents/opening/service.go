package opening

import (
	"context"
	"fmt"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/ledger"
)

// Repository persists opening balances.
type Repository interface {
	documents.Repository[*Opening]

	// ExistingKeys returns those keys that already have an opening balance in
	// financial year fy, ignoring the header exclude.
	ExistingKeys(ctx context.Context, fy int, keys []ledger.StockKey, exclude id.ID) ([]ledger.StockKey, error)
}

// Service coordinates opening balance writes.
type Service = documents.Coordinator[*Opening]

// NewService creates the opening balance coordinator.
func NewService(repo Repository, deps documents.Deps) *Service {
	return documents.NewCoordinator(documents.Config[*Opening]{
		Deps:  deps,
		Kind:  ledger.KindOpening,
		Repo:  repo,
		Rules: UniqueYear{Repo: repo},
	})
}

// UniqueYear allows at most one opening balance per item, warehouse and financial year.
type UniqueYear struct {
	Repo Repository
}

func (u UniqueYear) Check(ctx context.Context, ch documents.Change[*Opening]) error {
	if ch.Op == documents.OpDelete {
		return nil
	}
	doc := ch.Doc
	fy := doc.FinancialYear()

	var fe apperror.FieldErrors
	var keys []ledger.StockKey
	first := make(map[ledger.StockKey]int, len(doc.Lines))
	for i, k := range doc.Keys() {
		if j, dup := first[k]; dup {
			fe.Addf(documents.LinePath(i, "itemId"), apperror.CodeDuplicate,
				"item and warehouse repeat line %d", j+1)
			continue
		}
		first[k] = i
		if !id.IsNil(k.ItemID) && !id.IsNil(k.WarehouseID) {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 && !doc.Date.IsZero() {
		existing, err := u.Repo.ExistingKeys(ctx, fy, keys, doc.ID)
		if err != nil {
			return fmt.Errorf("check opening balances: %w", err)
		}
		for _, k := range existing {
			fe.Addf(documents.LinePath(first[k], "itemId"), apperror.CodeDuplicate,
				"an opening balance for this item and warehouse already exists in financial year %d", fy)
		}
	}
	return fe.Err()
}

func (UniqueYear) Apply(context.Context, documents.Change[*Opening]) error { return nil }
