// Package opening provides opening balances: the stock of an item in a
// warehouse at the start of a financial year.
package opening

import (
	"context"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/fiscal"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/core/validation"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/ledger"
)

// Opening is an opening balance header.
type Opening struct {
	entity.Header

	Lines []Line `db:"-" json:"lines" validate:"required,min=1,dive"`
}

// Line is the opening quantity of one (item, warehouse).
type Line struct {
	entity.Line

	ItemID      id.ID          `db:"item_id" json:"itemId" validate:"required"`
	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId" validate:"required"`
	Quantity    types.Quantity `db:"quantity" json:"quantity" validate:"gte=0"`
}

// New creates an empty opening balance dated date.
func New(date time.Time) *Opening {
	return &Opening{Header: entity.NewHeader(date)}
}

// AddLine appends a line.
func (o *Opening) AddLine(itemID, warehouseID id.ID, qty types.Quantity) {
	o.Lines = append(o.Lines, Line{ItemID: itemID, WarehouseID: warehouseID, Quantity: qty})
}

func (o *Opening) Kind() ledger.Kind { return ledger.KindOpening }

func (o *Opening) GetHeader() *entity.Header { return &o.Header }

// FinancialYear is the financial year the balance opens.
func (o *Opening) FinancialYear() int { return fiscal.Year(o.Date) }

func (o *Opening) Normalize() {
	documents.NormalizeHeader(&o.Header)
	for i := range o.Lines {
		o.Lines[i].Renumber(i + 1)
	}
}

// Validate implements entity.Validatable.
func (o *Opening) Validate(ctx context.Context) error {
	return validation.Check(o)
}

// Movements adds every line quantity to stock.
func (o *Opening) Movements() []entity.StockMovement {
	out := make([]entity.StockMovement, 0, len(o.Lines))
	for _, l := range o.Lines {
		out = append(out, documents.Movement(o, entity.RecordTypeReceipt, l.Line, l.ItemID, l.WarehouseID, l.Quantity, ""))
	}
	return out
}

func (o *Opening) Refs() []documents.Ref {
	var refs []documents.Ref
	for i, l := range o.Lines {
		refs = append(refs, documents.ItemWarehouseRefs(i, l.ItemID, l.WarehouseID)...)
	}
	return refs
}

// Keys returns the stock keys of the lines.
func (o *Opening) Keys() []ledger.StockKey {
	out := make([]ledger.StockKey, 0, len(o.Lines))
	for _, l := range o.Lines {
		out = append(out, ledger.StockKey{ItemID: l.ItemID, WarehouseID: l.WarehouseID})
	}
	return out
}

// Clone returns a deep copy.
func (o *Opening) Clone() *Opening {
	c := *o
	c.Lines = append([]Line(nil), o.Lines...)
	return &c
}

var _ documents.Document = (*Opening)(nil)
