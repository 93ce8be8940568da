// Package pgstore assembles the PostgreSQL repositories into one store.
package pgstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/numerator"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/catalog_repo"
	"stockledger/internal/infrastructure/storage/postgres/document_repo"
	"stockledger/internal/infrastructure/storage/postgres/register_repo"
	"stockledger/internal/infrastructure/storage/postgres/report_repo"
)

// Store holds every repository over one transaction manager.
type Store struct {
	TxManager *postgres.TxManager
	builder   squirrel.StatementBuilderType

	Groups     *catalog_repo.GroupRepo
	Warehouses *catalog_repo.WarehouseRepo
	Contacts   *catalog_repo.ContactRepo
	Items      *catalog_repo.ItemRepo
	BOMs       *catalog_repo.BOMRepo

	Openings    *document_repo.OpeningRepo
	Inwards     *document_repo.InwardRepo
	Outwards    *document_repo.OutwardRepo
	Productions *document_repo.ProductionRepo
	Transfers   *document_repo.TransferRepo
	Adjustments *document_repo.AdjustmentRepo
	Issues      *document_repo.IssueRepo
	Returns     *document_repo.ReturnRepo

	Stock       *register_repo.StockRepo
	Reports     *report_repo.ReportRepo
	Periods     *postgres.PeriodRepo
	Audit       *postgres.AuditService
	Numbers     *numerator.Service
	Outbox      *postgres.OutboxPublisher
	Idempotency *postgres.IdempotencyStore
}

// New creates the store.
func New(txm *postgres.TxManager) (*Store, error) {
	auditSvc, err := postgres.NewAuditService(txm)
	if err != nil {
		return nil, err
	}

	return &Store{
		TxManager: txm,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),

		Groups:     catalog_repo.NewGroupRepo(txm),
		Warehouses: catalog_repo.NewWarehouseRepo(txm),
		Contacts:   catalog_repo.NewContactRepo(txm),
		Items:      catalog_repo.NewItemRepo(txm),
		BOMs:       catalog_repo.NewBOMRepo(txm),

		Openings:    document_repo.NewOpeningRepo(txm),
		Inwards:     document_repo.NewInwardRepo(txm),
		Outwards:    document_repo.NewOutwardRepo(txm),
		Productions: document_repo.NewProductionRepo(txm),
		Transfers:   document_repo.NewTransferRepo(txm),
		Adjustments: document_repo.NewAdjustmentRepo(txm),
		Issues:      document_repo.NewIssueRepo(txm),
		Returns:     document_repo.NewReturnRepo(txm),

		Stock:       register_repo.NewStockRepo(txm),
		Reports:     report_repo.NewReportRepo(txm),
		Periods:     postgres.NewPeriodRepo(txm),
		Audit:       auditSvc,
		Numbers:     numerator.NewFromTx(txm),
		Outbox:      postgres.NewOutboxPublisher(txm),
		Idempotency: postgres.NewIdempotencyStore(txm, 0),
	}, nil
}

// Deps wires the store into the shared document coordinator dependencies.
// The stock cache is left for the caller.
func (s *Store) Deps(retry tx.RetryPolicy) documents.Deps {
	return documents.Deps{
		TxManager: s.TxManager,
		Periods:   s.Periods,
		Refs:      s,
		Movements: s.Stock,
		Events:    s.Outbox,
		Audit:     s.Audit,
		Retry:     retry,
	}
}

var catalogTables = map[string]string{
	domain.CatalogGroup:     "groups",
	domain.CatalogWarehouse: "warehouses",
	domain.CatalogContact:   "contacts",
	domain.CatalogItem:      "items",
}

func (s *Store) missingQuery(catalog string, ids []id.ID) (squirrel.SelectBuilder, error) {
	table, ok := catalogTables[catalog]
	if !ok {
		return squirrel.SelectBuilder{}, fmt.Errorf("unknown catalog %q", catalog)
	}
	return s.builder.Select("id").From(table).Where(squirrel.Eq{"id": ids}), nil
}

// Missing implements domain.ExistenceChecker.
func (s *Store) Missing(ctx context.Context, catalog string, ids []id.ID) ([]id.ID, error) {
	q, err := s.missingQuery(catalog, ids)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var found []id.ID
	if err := pgxscan.Select(ctx, s.TxManager.GetQuerier(ctx), &found, sql, args...); err != nil {
		return nil, fmt.Errorf("check %s references: %w", catalog, err)
	}

	var missing []id.ID
	for _, x := range ids {
		if !slices.Contains(found, x) && !slices.Contains(missing, x) {
			missing = append(missing, x)
		}
	}
	return missing, nil
}

// usageRef is a column that may hold a master record id. Used names the
// record set reported when it does.
type usageRef struct {
	used   string
	table  string
	column string
}

var lineTables = []struct {
	kind  ledger.Kind
	table string
}{
	{ledger.KindOpening, "opening_balance_lines"},
	{ledger.KindInward, "inward_lines"},
	{ledger.KindOutward, "outward_lines"},
	{ledger.KindProduction, "production_lines"},
	{ledger.KindTransfer, "transfer_lines"},
	{ledger.KindAdjustment, "adjustment_lines"},
	{ledger.KindDeliveryIssue, "delivery_issue_lines"},
	{ledger.KindDeliveryReturn, "delivery_return_lines"},
}

// usageRefs lists, per catalog, the columns that reference it in report order.
func usageRefs(catalog string) []usageRef {
	var refs []usageRef
	switch catalog {
	case domain.CatalogGroup:
		refs = append(refs, usageRef{domain.CatalogItem, "items", "group_id"})
	case domain.CatalogWarehouse:
		refs = append(refs, usageRef{domain.CatalogWarehouse, "warehouses", "parent_id"})
		for _, lt := range lineTables {
			if lt.kind == ledger.KindTransfer {
				refs = append(refs,
					usageRef{lt.kind.String(), lt.table, "from_warehouse_id"},
					usageRef{lt.kind.String(), lt.table, "to_warehouse_id"})
				continue
			}
			refs = append(refs, usageRef{lt.kind.String(), lt.table, "warehouse_id"})
		}
	case domain.CatalogItem:
		refs = append(refs,
			usageRef{domain.CatalogBOM, "boms", "item_id"},
			usageRef{domain.CatalogBOM, "bom_components", "item_id"})
		for _, lt := range lineTables {
			refs = append(refs, usageRef{lt.kind.String(), lt.table, "item_id"})
		}
	case domain.CatalogContact:
		refs = append(refs,
			usageRef{ledger.KindInward.String(), "inwards", "contact_id"},
			usageRef{ledger.KindOutward.String(), "outwards", "contact_id"},
			usageRef{ledger.KindDeliveryIssue.String(), "delivery_issues", "contact_id"})
	}
	return refs
}

func (s *Store) existsQuery(ref usageRef, entityID id.ID) squirrel.SelectBuilder {
	return s.builder.Select("1").
		From(ref.table).
		Where(squirrel.Eq{ref.column: entityID}).
		Limit(1).
		Prefix("SELECT EXISTS (").
		Suffix(")")
}

// Usage implements domain.UsageChecker.
func (s *Store) Usage(ctx context.Context, catalog string, entityID id.ID) ([]string, error) {
	var used []string
	for _, ref := range usageRefs(catalog) {
		if slices.Contains(used, ref.used) {
			continue
		}

		sql, args, err := s.existsQuery(ref, entityID).ToSql()
		if err != nil {
			return nil, fmt.Errorf("build query: %w", err)
		}
		var exists bool
		if err := s.TxManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check usage in %s: %w", ref.table, err)
		}
		if exists {
			used = append(used, ref.used)
		}
	}
	return used, nil
}

var (
	_ domain.ExistenceChecker = (*Store)(nil)
	_ domain.UsageChecker     = (*Store)(nil)
)
