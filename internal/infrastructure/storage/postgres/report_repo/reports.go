// Package report_repo provides PostgreSQL aggregations of the movement register.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/fiscal"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/reports"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	movementsTable = "stock_movements"
	dateLayout     = "2006-01-02"
	signedQuantity = "CASE WHEN record_type = 'receipt' THEN quantity ELSE -quantity END"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func day(t time.Time) string {
	return entity.TruncateDay(t).Format(dateLayout)
}

func (r *ReportRepo) totalsQuery(from, to time.Time) squirrel.SelectBuilder {
	return r.builder.Select(
		"COALESCE(SUM(quantity) FILTER (WHERE recorder_type = 'inward'), 0) AS inward",
		"COALESCE(SUM(quantity) FILTER (WHERE recorder_type = 'outward'), 0) AS outward",
		"COALESCE(SUM(quantity) FILTER (WHERE recorder_type = 'production' AND record_type = 'receipt'), 0) AS produced",
	).
		From(movementsTable).
		Where(squirrel.GtOrEq{"period": day(from)}).
		Where(squirrel.LtOrEq{"period": day(to)})
}

// Totals sums inward receipts, outward expenses and produced receipts dated within [from, to].
func (r *ReportRepo) Totals(ctx context.Context, from, to time.Time) (reports.Totals, error) {
	var out reports.Totals

	sql, args, err := r.totalsQuery(from, to).ToSql()
	if err != nil {
		return out, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return out, fmt.Errorf("calculate totals: %w", err)
	}
	return out, nil
}

func (r *ReportRepo) turnoverQuery(filter reports.TurnoverFilter) squirrel.SelectBuilder {
	q := r.builder.Select(
		"item_id",
		"warehouse_id",
		"COALESCE(SUM(quantity) FILTER (WHERE record_type = 'receipt'), 0) AS receipt",
		"COALESCE(SUM(quantity) FILTER (WHERE record_type = 'expense'), 0) AS expense",
	).
		From(movementsTable).
		Where(squirrel.GtOrEq{"period": day(filter.From)}).
		Where(squirrel.LtOrEq{"period": day(filter.To)})

	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"recorder_type": string(*filter.Kind)})
	}
	if filter.ItemID != nil {
		q = q.Where(squirrel.Eq{"item_id": *filter.ItemID})
	}
	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	return q.GroupBy("item_id", "warehouse_id").OrderBy("item_id", "warehouse_id")
}

// Turnover sums receipts and expenses per (item, warehouse).
func (r *ReportRepo) Turnover(ctx context.Context, filter reports.TurnoverFilter) ([]reports.TurnoverRow, error) {
	sql, args, err := r.turnoverQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows := []reports.TurnoverRow{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("calculate turnover: %w", err)
	}
	return rows, nil
}

// balancesQuery sums signed movements per key. With asOf, movements after it
// are left out and opening balances count only in the financial year of asOf.
func (r *ReportRepo) balancesQuery(asOf *time.Time) squirrel.SelectBuilder {
	q := r.builder.Select(
		"item_id",
		"warehouse_id",
		"COALESCE(SUM("+signedQuantity+"), 0) AS quantity",
	).From(movementsTable)

	if asOf != nil {
		fyStart, _ := fiscal.Bounds(fiscal.Year(*asOf))
		q = q.
			Where(squirrel.LtOrEq{"period": day(*asOf)}).
			Where(squirrel.Or{
				squirrel.NotEq{"recorder_type": string(ledger.KindOpening)},
				squirrel.GtOrEq{"period": day(fyStart)},
			})
	}
	return q.GroupBy("item_id", "warehouse_id").OrderBy("item_id", "warehouse_id")
}

// Balances returns the stock of every (item, warehouse) as of asOf.
func (r *ReportRepo) Balances(ctx context.Context, asOf *time.Time) ([]reports.BalanceRow, error) {
	sql, args, err := r.balancesQuery(asOf).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows := []reports.BalanceRow{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("calculate balances: %w", err)
	}
	return rows, nil
}

var _ reports.Repository = (*ReportRepo)(nil)
