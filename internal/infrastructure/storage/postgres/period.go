package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/period"
)

const periodTable = "sys_period"

var periodColumns = []string{"name", "start_date", "end_date", "updated_at", "updated_by"}

// PeriodRepo stores the active period in sys_period.
type PeriodRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewPeriodRepo creates a new period repository.
func NewPeriodRepo(txManager *TxManager) *PeriodRepo {
	return &PeriodRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// getQuery reads the active period. Inside a transaction the row is share
// locked so the period cannot change before the ledger write commits.
func (r *PeriodRepo) getQuery(locked bool) squirrel.SelectBuilder {
	q := r.builder.Select(periodColumns...).
		From(periodTable).
		Where(squirrel.Eq{"name": period.ActiveName})
	if locked {
		q = q.Suffix("FOR SHARE")
	}
	return q
}

// Get implements period.Repository.
func (r *PeriodRepo) Get(ctx context.Context) (*period.Period, error) {
	sql, args, err := r.getQuery(r.txManager.GetTx(ctx) != nil).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p period.Period
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("period", period.ActiveName)
		}
		return nil, fmt.Errorf("get period: %w", MapError(err))
	}
	return &p, nil
}

func (r *PeriodRepo) saveQuery(p *period.Period) squirrel.InsertBuilder {
	return r.builder.Insert(periodTable).
		Columns(periodColumns...).
		Values(p.Name, p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"), p.UpdatedAt, p.UpdatedBy).
		Suffix("ON CONFLICT (name) DO UPDATE SET start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date, " +
			"updated_at = EXCLUDED.updated_at, updated_by = EXCLUDED.updated_by")
}

// Save implements period.Repository.
func (r *PeriodRepo) Save(ctx context.Context, p *period.Period) error {
	if p.Name == "" {
		p.Name = period.ActiveName
	}
	sql, args, err := r.saveQuery(p).ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("save period: %w", MapError(err))
	}
	return nil
}

// Active implements period.Provider; an empty table means no period.
func (r *PeriodRepo) Active(ctx context.Context) (*period.Period, error) {
	p, err := r.Get(ctx)
	if apperror.IsNotFound(err) {
		return nil, nil
	}
	return p, err
}

var (
	_ period.Repository = (*PeriodRepo)(nil)
	_ period.Provider   = (*PeriodRepo)(nil)
)
