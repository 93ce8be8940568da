package memory

import (
	"context"
	"slices"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/domain/reports"
)

// StockRepo is the stock movement register, keyed by recorder.
type StockRepo struct {
	s    *Store
	rows map[id.ID][]entity.StockMovement
}

func (r *StockRepo) ReplaceMovements(ctx context.Context, recorderID id.ID, movements []entity.StockMovement) error {
	return r.s.write(ctx, func() (func(), error) {
		prev, had := r.rows[recorderID]
		if len(movements) == 0 {
			delete(r.rows, recorderID)
		} else {
			r.rows[recorderID] = slices.Clone(movements)
		}
		return r.restore(recorderID, prev, had), nil
	})
}

func (r *StockRepo) DeleteMovementsByRecorder(ctx context.Context, recorderID id.ID) error {
	return r.s.write(ctx, func() (func(), error) {
		prev, had := r.rows[recorderID]
		delete(r.rows, recorderID)
		return r.restore(recorderID, prev, had), nil
	})
}

func (r *StockRepo) restore(recorderID id.ID, prev []entity.StockMovement, had bool) func() {
	return func() {
		if had {
			r.rows[recorderID] = prev
		} else {
			delete(r.rows, recorderID)
		}
	}
}

func (r *StockRepo) GetMovementsByRecorder(_ context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	r.s.read(func() { out = slices.Clone(r.rows[recorderID]) })
	stock.SortMovements(out)
	return out, nil
}

func (r *StockRepo) GetMovements(_ context.Context, filter stock.MovementFilter) ([]entity.StockMovement, error) {
	out := []entity.StockMovement{}
	r.s.read(func() {
		for _, ms := range r.rows {
			for _, m := range ms {
				if matchMovement(m, filter) {
					out = append(out, m)
				}
			}
		}
	})
	stock.SortMovements(out)
	return out, nil
}

func matchMovement(m entity.StockMovement, f stock.MovementFilter) bool {
	switch {
	case f.ItemID != nil && m.ItemID != *f.ItemID:
		return false
	case f.WarehouseID != nil && m.WarehouseID != *f.WarehouseID:
		return false
	case f.From != nil && m.Period.Before(entity.TruncateDay(*f.From)):
		return false
	case f.To != nil && m.Period.After(entity.TruncateDay(*f.To)):
		return false
	case len(f.RecorderTypes) > 0 && !slices.Contains(f.RecorderTypes, ledger.Kind(m.RecorderType)):
		return false
	}
	return true
}

// all returns every movement. Callers hold the read lock.
func (r *StockRepo) all() []entity.StockMovement {
	var out []entity.StockMovement
	for _, ms := range r.rows {
		out = append(out, ms...)
	}
	return out
}

// ReportRepo aggregates the register for reports.
type ReportRepo struct {
	s *Store
}

func (r *ReportRepo) Totals(_ context.Context, from, to time.Time) (reports.Totals, error) {
	var out reports.Totals
	r.s.read(func() {
		for _, m := range r.s.Stock.all() {
			if m.Period.Before(from) || m.Period.After(to) {
				continue
			}
			switch {
			case m.RecorderType == string(ledger.KindInward):
				out.Inward += m.Quantity
			case m.RecorderType == string(ledger.KindOutward):
				out.Outward += m.Quantity
			case m.RecorderType == string(ledger.KindProduction) && m.RecordType == entity.RecordTypeReceipt:
				out.Produced += m.Quantity
			}
		}
	})
	return out, nil
}

func (r *ReportRepo) Turnover(_ context.Context, filter reports.TurnoverFilter) ([]reports.TurnoverRow, error) {
	mf := stock.MovementFilter{
		ItemID:      filter.ItemID,
		WarehouseID: filter.WarehouseID,
		From:        &filter.From,
		To:          &filter.To,
	}
	if filter.Kind != nil {
		mf.RecorderTypes = []ledger.Kind{*filter.Kind}
	}

	rows := make(map[ledger.StockKey]*reports.TurnoverRow)
	r.s.read(func() {
		for _, m := range r.s.Stock.all() {
			if !matchMovement(m, mf) {
				continue
			}
			key := ledger.StockKey{ItemID: m.ItemID, WarehouseID: m.WarehouseID}
			row, ok := rows[key]
			if !ok {
				row = &reports.TurnoverRow{ItemID: m.ItemID, WarehouseID: m.WarehouseID}
				rows[key] = row
			}
			if m.RecordType == entity.RecordTypeExpense {
				row.Expense += m.Quantity
			} else {
				row.Receipt += m.Quantity
			}
		}
	})

	out := make([]reports.TurnoverRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	slices.SortFunc(out, func(a, b reports.TurnoverRow) int {
		return compareKeys(a.ItemID, a.WarehouseID, b.ItemID, b.WarehouseID)
	})
	return out, nil
}

func (r *ReportRepo) Balances(_ context.Context, asOf *time.Time) ([]reports.BalanceRow, error) {
	var all []entity.StockMovement
	r.s.read(func() { all = r.s.Stock.all() })

	balances := stock.Balances(all, asOf)
	out := make([]reports.BalanceRow, 0, len(balances))
	for key, qty := range balances {
		out = append(out, reports.BalanceRow{ItemID: key.ItemID, WarehouseID: key.WarehouseID, Quantity: qty})
	}
	slices.SortFunc(out, func(a, b reports.BalanceRow) int {
		return compareKeys(a.ItemID, a.WarehouseID, b.ItemID, b.WarehouseID)
	})
	return out, nil
}

func compareKeys(itemA, whA, itemB, whB id.ID) int {
	if c := compareIDs(itemA, itemB); c != 0 {
		return c
	}
	return compareIDs(whA, whB)
}
