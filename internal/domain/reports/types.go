// Package reports summarizes the movement register: the dashboard, turnover
// per (item, warehouse) and non-zero stock balances.
package reports

import (
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/period"
)

// Totals are movement quantities of one date range.
type Totals struct {
	Inward   types.Quantity `db:"inward" json:"inward"`
	Outward  types.Quantity `db:"outward" json:"outward"`
	Produced types.Quantity `db:"produced" json:"produced"`
}

// Dashboard is the landing summary.
type Dashboard struct {
	// Period is the active period; nil when none is configured.
	Period *period.Period `json:"period"`

	// PeriodTotals covers the active period and is zero without one.
	PeriodTotals Totals `json:"periodTotals"`

	// TotalStock is the signed sum of every movement.
	TotalStock types.Quantity `json:"totalStock"`
}

// TurnoverFilter selects movements for a turnover report. From and To are
// inclusive calendar days.
type TurnoverFilter struct {
	From        time.Time
	To          time.Time
	Kind        *ledger.Kind
	ItemID      *id.ID
	WarehouseID *id.ID
}

// TurnoverRow is the receipts and expenses of one (item, warehouse).
type TurnoverRow struct {
	ItemID      id.ID          `db:"item_id" json:"itemId"`
	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId"`
	Receipt     types.Quantity `db:"receipt" json:"receipt"`
	Expense     types.Quantity `db:"expense" json:"expense"`
}

// Net is receipts minus expenses.
func (r TurnoverRow) Net() types.Quantity { return r.Receipt - r.Expense }

// Turnover is a turnover report.
type Turnover struct {
	From         time.Time      `json:"from"`
	To           time.Time      `json:"to"`
	Rows         []TurnoverRow  `json:"rows"`
	TotalReceipt types.Quantity `json:"totalReceipt"`
	TotalExpense types.Quantity `json:"totalExpense"`
}

// BalanceRow is the stock of one (item, warehouse).
type BalanceRow struct {
	ItemID      id.ID          `db:"item_id" json:"itemId"`
	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
}

// StockSummary lists non-zero balances.
type StockSummary struct {
	AsOf  *time.Time     `json:"asOf,omitempty"`
	Rows  []BalanceRow   `json:"rows"`
	Total types.Quantity `json:"total"`
}
