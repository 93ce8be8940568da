// Package register_repo provides the PostgreSQL movement register.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/storage/postgres"
)

const stockMovementsTable = "stock_movements"

var movementColumns = []string{
	"recorder_id", "recorder_type", "line_id", "line_no",
	"period", "record_type",
	"warehouse_id", "item_id", "quantity", "reference", "created_at",
}

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func movementRow(m entity.StockMovement) []any {
	return []any{
		m.RecorderID, m.RecorderType, m.LineID, m.LineNo,
		m.Period, m.RecordType,
		m.WarehouseID, m.ItemID, m.Quantity, m.Reference, m.CreatedAt,
	}
}

// ReplaceMovements deletes the movements of recorderID and inserts movements.
func (r *StockRepo) ReplaceMovements(ctx context.Context, recorderID id.ID, movements []entity.StockMovement) error {
	if err := r.DeleteMovementsByRecorder(ctx, recorderID); err != nil {
		return err
	}
	if len(movements) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction.
	if r.txm.GetTx(ctx) != nil {
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, movementRow(m))
		}
		if _, err := postgres.NewBatchInserter(r.txm).CopyRows(ctx, stockMovementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	sql, args, err := r.insertQuery(movements).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", postgres.MapError(err))
	}
	return nil
}

func (r *StockRepo) insertQuery(movements []entity.StockMovement) squirrel.InsertBuilder {
	q := r.builder.Insert(stockMovementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(movementRow(m)...)
	}
	return q
}

// DeleteMovementsByRecorder removes all movements of a header.
func (r *StockRepo) DeleteMovementsByRecorder(ctx context.Context, recorderID id.ID) error {
	sql, args, err := r.builder.Delete(stockMovementsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete movements: %w", postgres.MapError(err))
	}
	return nil
}

// GetMovementsByRecorder retrieves all movements of a header in line order.
func (r *StockRepo) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	q := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		OrderBy("line_no", "record_type")
	return r.selectMovements(ctx, q)
}

// movementsQuery builds the filtered register query.
func (r *StockRepo) movementsQuery(filter stock.MovementFilter) squirrel.SelectBuilder {
	q := r.builder.Select(movementColumns...).From(stockMovementsTable)

	if filter.ItemID != nil {
		q = q.Where(squirrel.Eq{"item_id": *filter.ItemID})
	}
	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"period": entity.TruncateDay(*filter.From).Format("2006-01-02")})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"period": entity.TruncateDay(*filter.To).Format("2006-01-02")})
	}
	if len(filter.RecorderTypes) > 0 {
		kinds := make([]string, len(filter.RecorderTypes))
		for i, k := range filter.RecorderTypes {
			kinds[i] = string(k)
		}
		q = q.Where(squirrel.Eq{"recorder_type": kinds})
	}
	return q
}

// GetMovements returns the movements matching filter.
func (r *StockRepo) GetMovements(ctx context.Context, filter stock.MovementFilter) ([]entity.StockMovement, error) {
	return r.selectMovements(ctx, r.movementsQuery(filter))
}

func (r *StockRepo) selectMovements(ctx context.Context, q squirrel.SelectBuilder) ([]entity.StockMovement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	movements := []entity.StockMovement{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}

// Ensure interface compliance.
var _ stock.Repository = (*StockRepo)(nil)
