package reports

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/domain/period"
)

// Service provides report generation operations.
type Service struct {
	repo    Repository
	periods period.Provider
}

// NewService creates a new reports service.
func NewService(repo Repository, periods period.Provider) *Service {
	return &Service{repo: repo, periods: periods}
}

// Dashboard returns the active period, its movement totals and total stock.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	active, err := s.periods.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve active period: %w", err)
	}

	out := &Dashboard{Period: active}
	if active != nil {
		totals, err := s.repo.Totals(ctx, active.Start, active.End)
		if err != nil {
			return nil, fmt.Errorf("period totals: %w", err)
		}
		out.PeriodTotals = totals
	}

	balances, err := s.repo.Balances(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}
	for _, b := range balances {
		out.TotalStock += b.Quantity
	}
	return out, nil
}

// Turnover returns receipts, expenses and net per (item, warehouse) within a date range.
func (s *Service) Turnover(ctx context.Context, filter TurnoverFilter) (*Turnover, error) {
	var fe apperror.FieldErrors
	if filter.From.IsZero() {
		fe.Add("from", apperror.CodeRequired, "from is required")
	}
	if filter.To.IsZero() {
		fe.Add("to", apperror.CodeRequired, "to is required")
	}
	if fe.Empty() && filter.From.After(filter.To) {
		fe.Add("to", apperror.CodeInvalid, "to must not be before from")
	}
	if filter.Kind != nil && !filter.Kind.Valid() {
		fe.Addf("kind", apperror.CodeInvalid, "unknown ledger kind %q", *filter.Kind)
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}
	filter.From = entity.TruncateDay(filter.From)
	filter.To = entity.TruncateDay(filter.To)

	rows, err := s.repo.Turnover(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get turnover: %w", err)
	}

	out := &Turnover{From: filter.From, To: filter.To, Rows: rows}
	for _, r := range rows {
		out.TotalReceipt += r.Receipt
		out.TotalExpense += r.Expense
	}
	return out, nil
}

// StockSummary returns every non-zero balance, optionally as of a date.
func (s *Service) StockSummary(ctx context.Context, asOf *time.Time) (*StockSummary, error) {
	rows, err := s.repo.Balances(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}

	out := &StockSummary{AsOf: asOf, Rows: make([]BalanceRow, 0, len(rows))}
	for _, r := range rows {
		if r.Quantity.IsZero() {
			continue
		}
		out.Rows = append(out.Rows, r)
		out.Total += r.Quantity
	}
	return out, nil
}
