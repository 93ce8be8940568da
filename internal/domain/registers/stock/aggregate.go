package stock

import (
	"slices"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/fiscal"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
)

// LedgerEntry is one row of a stock ledger.
type LedgerEntry struct {
	Date       time.Time      `json:"date"`
	Kind       ledger.Kind    `json:"kind"`
	Label      string         `json:"label"`
	Reference  string         `json:"reference,omitempty"`
	RecorderID id.ID          `json:"recorderId"`
	LineNo     int            `json:"lineNo"`
	In         types.Quantity `json:"in"`
	Out        types.Quantity `json:"out"`
	Balance    types.Quantity `json:"balance"`
}

// Counts reports whether m contributes to stock as of asOf. Without asOf
// every movement counts. With it, a movement counts when dated on or before
// asOf, and an opening balance additionally only in the financial year of asOf.
func Counts(m entity.StockMovement, asOf *time.Time) bool {
	if asOf == nil {
		return true
	}
	day := entity.TruncateDay(*asOf)
	if m.Period.After(day) {
		return false
	}
	if ledger.Kind(m.RecorderType) == ledger.KindOpening {
		return fiscal.Year(m.Period) == fiscal.Year(day)
	}
	return true
}

// Balance is the signed sum of the movements that count as of asOf.
// Callers pass the movements of a single (item, warehouse).
func Balance(movements []entity.StockMovement, asOf *time.Time) types.Quantity {
	var total types.Quantity
	for i := range movements {
		if Counts(movements[i], asOf) {
			total += movements[i].SignedQuantity()
		}
	}
	return total
}

// Balances sums movements per stock key.
func Balances(movements []entity.StockMovement, asOf *time.Time) map[ledger.StockKey]types.Quantity {
	out := make(map[ledger.StockKey]types.Quantity)
	for i := range movements {
		m := &movements[i]
		if !Counts(*m, asOf) {
			continue
		}
		out[ledger.StockKey{ItemID: m.ItemID, WarehouseID: m.WarehouseID}] += m.SignedQuantity()
	}
	return out
}

// SortMovements orders movements by date, then ledger kind, then insertion
// order. Recorder ids are time-ordered UUIDv7 values.
func SortMovements(movements []entity.StockMovement) {
	slices.SortStableFunc(movements, func(a, b entity.StockMovement) int {
		if c := a.Period.Compare(b.Period); c != 0 {
			return c
		}
		ra := ledger.Rank(ledger.Kind(a.RecorderType), a.RecordType)
		rb := ledger.Rank(ledger.Kind(b.RecorderType), b.RecordType)
		if ra != rb {
			return ra - rb
		}
		if c := id.Compare(a.RecorderID, b.RecorderID); c != 0 {
			return c
		}
		return a.LineNo - b.LineNo
	})
}

// BuildLedger sorts movements and sweeps them into entries with a running
// balance. The last balance equals Balance(movements, nil).
func BuildLedger(movements []entity.StockMovement) []LedgerEntry {
	sorted := slices.Clone(movements)
	SortMovements(sorted)

	entries := make([]LedgerEntry, 0, len(sorted))
	var running types.Quantity
	for _, m := range sorted {
		kind := ledger.Kind(m.RecorderType)
		e := LedgerEntry{
			Date:       m.Period,
			Kind:       kind,
			Label:      ledger.Label(kind, m.RecordType),
			Reference:  m.Reference,
			RecorderID: m.RecorderID,
			LineNo:     m.LineNo,
		}
		if m.RecordType == entity.RecordTypeExpense {
			e.Out = m.Quantity
		} else {
			e.In = m.Quantity
		}
		running += m.SignedQuantity()
		e.Balance = running
		entries = append(entries, e)
	}
	return entries
}
