package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/opening"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

// OpeningRepo stores opening balances. Lines carry the financial year of
// their header so uq_opening_lines_key holds one balance per key and year.
type OpeningRepo struct {
	*BaseDocumentRepo[*opening.Opening, opening.Line]
}

func NewOpeningRepo(txm *postgres.TxManager) *OpeningRepo {
	base := NewBaseDocumentRepo(txm, ledger.KindOpening, "opening_balances", "opening_balance_lines",
		func() *opening.Opening { return &opening.Opening{} },
		func(d *opening.Opening) *[]opening.Line { return &d.Lines },
	)
	base.lineExtra = func(d *opening.Opening) map[string]any {
		return map[string]any{"fiscal_year": d.FinancialYear()}
	}
	return &OpeningRepo{BaseDocumentRepo: base}
}

// ExistingKeys returns those keys that already have an opening balance in fy,
// ignoring the header exclude. Inside a transaction it first takes an advisory
// lock on the year, so concurrent writers of the same year check in turn.
func (r *OpeningRepo) ExistingKeys(ctx context.Context, fy int, keys []ledger.StockKey, exclude id.ID) ([]ledger.StockKey, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	querier := r.querier(ctx)

	if r.txm.GetTx(ctx) != nil {
		if _, err := querier.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", fmt.Sprintf("opening:%d", fy)); err != nil {
			return nil, fmt.Errorf("lock opening year %d: %w", fy, postgres.MapError(err))
		}
	}

	sql, args, err := existingKeysQuery(r.Builder(), fy, keys, exclude).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []struct {
		ItemID      id.ID `db:"item_id"`
		WarehouseID id.ID `db:"warehouse_id"`
	}
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("existing opening keys: %w", err)
	}

	taken := make(map[ledger.StockKey]bool, len(rows))
	for _, row := range rows {
		taken[ledger.StockKey{ItemID: row.ItemID, WarehouseID: row.WarehouseID}] = true
	}
	var out []ledger.StockKey
	for _, k := range keys {
		if taken[k] {
			out = append(out, k)
		}
	}
	return out, nil
}

func existingKeysQuery(b squirrel.StatementBuilderType, fy int, keys []ledger.StockKey, exclude id.ID) squirrel.SelectBuilder {
	match := make(squirrel.Or, 0, len(keys))
	for _, k := range keys {
		match = append(match, squirrel.Eq{"item_id": k.ItemID, "warehouse_id": k.WarehouseID})
	}
	return b.
		Select("DISTINCT item_id", "warehouse_id").
		From("opening_balance_lines").
		Where(squirrel.Eq{"fiscal_year": fy}).
		Where(squirrel.NotEq{"doc_id": exclude}).
		Where(match)
}

var _ opening.Repository = (*OpeningRepo)(nil)
