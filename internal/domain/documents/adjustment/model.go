// Package adjustment records manual stock corrections.
package adjustment

import (
	"context"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/core/validation"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/ledger"
)

// Direction is the sign of an adjustment line.
type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
)

// Adjustment is a stock adjustment header.
type Adjustment struct {
	entity.Header

	Reason string `db:"reason" json:"reason" validate:"required,max=500"`

	Lines []Line `db:"-" json:"lines" validate:"required,min=1,dive"`
}

// Line corrects the stock of one (item, warehouse). Quantities may be fractional.
type Line struct {
	entity.Line

	ItemID      id.ID          `db:"item_id" json:"itemId" validate:"required"`
	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId" validate:"required"`
	Direction   Direction      `db:"direction" json:"direction" validate:"required,oneof=increase decrease"`
	Quantity    types.Quantity `db:"quantity" json:"quantity" validate:"gt=0"`
}

// New creates an empty adjustment.
func New(date time.Time, reason string) *Adjustment {
	return &Adjustment{Header: entity.NewHeader(date), Reason: reason}
}

// AddLine appends a line.
func (a *Adjustment) AddLine(itemID, warehouseID id.ID, dir Direction, qty types.Quantity) {
	a.Lines = append(a.Lines, Line{ItemID: itemID, WarehouseID: warehouseID, Direction: dir, Quantity: qty})
}

func (a *Adjustment) Kind() ledger.Kind { return ledger.KindAdjustment }

func (a *Adjustment) GetHeader() *entity.Header { return &a.Header }

func (a *Adjustment) Normalize() {
	documents.NormalizeHeader(&a.Header)
	for i := range a.Lines {
		a.Lines[i].Renumber(i + 1)
	}
}

// Validate implements entity.Validatable.
func (a *Adjustment) Validate(ctx context.Context) error {
	return validation.Check(a)
}

func (a *Adjustment) Movements() []entity.StockMovement {
	out := make([]entity.StockMovement, 0, len(a.Lines))
	for _, l := range a.Lines {
		rt := entity.RecordTypeReceipt
		if l.Direction == Decrease {
			rt = entity.RecordTypeExpense
		}
		out = append(out, documents.Movement(a, rt, l.Line, l.ItemID, l.WarehouseID, l.Quantity, a.Reason))
	}
	return out
}

func (a *Adjustment) Refs() []documents.Ref {
	var refs []documents.Ref
	for i, l := range a.Lines {
		refs = append(refs, documents.ItemWarehouseRefs(i, l.ItemID, l.WarehouseID)...)
	}
	return refs
}

// Clone returns a deep copy.
func (a *Adjustment) Clone() *Adjustment {
	c := *a
	c.Lines = append([]Line(nil), a.Lines...)
	return &c
}

var _ documents.Document = (*Adjustment)(nil)
