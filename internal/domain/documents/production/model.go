// Package production records production runs: finished goods produced and
// the materials consumed for them.
package production

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

// LineType says whether a line adds (produced) or removes (consumed) stock.
type LineType string

const (
	LineProduced LineType = "produced"
	LineConsumed LineType = "consumed"
)

// Production is a production run header.
type Production struct {
	entity.Header

	// ReferenceNo is unique among production runs; generated when empty.
	ReferenceNo string `db:"reference_no" json:"referenceNo" validate:"max=100"`

	Lines []Line `db:"-" json:"lines" validate:"required,min=1,dive"`
}

// Line is one produced or consumed quantity. An empty Type is resolved by a Classifier.
type Line struct {
	entity.Line

	ItemID      id.ID          `db:"item_id" json:"itemId" validate:"required"`
	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId" validate:"required"`
	Quantity    types.Quantity `db:"quantity" json:"quantity" validate:"gt=0,whole"`
	Type        LineType       `db:"type" json:"type,omitempty" validate:"omitempty,oneof=produced consumed"`
}

// New creates an empty production run.
func New(date time.Time, referenceNo string) *Production {
	return &Production{Header: entity.NewHeader(date), ReferenceNo: referenceNo}
}

// AddLine appends a line; t may be empty.
func (p *Production) AddLine(itemID, warehouseID id.ID, qty types.Quantity, t LineType) {
	p.Lines = append(p.Lines, Line{ItemID: itemID, WarehouseID: warehouseID, Quantity: qty, Type: t})
}

func (p *Production) Kind() ledger.Kind { return ledger.KindProduction }

func (p *Production) GetHeader() *entity.Header { return &p.Header }

func (p *Production) GetReference() string { return p.ReferenceNo }

func (p *Production) SetReference(ref string) { p.ReferenceNo = ref }

func (p *Production) Normalize() {
	documents.NormalizeHeader(&p.Header)
	for i := range p.Lines {
		p.Lines[i].Renumber(i + 1)
	}
}

// Validate implements entity.Validatable.
func (p *Production) Validate(ctx context.Context) error {
	return validation.Check(p)
}

// Movements adds produced and removes consumed quantities. Lines are
// classified before they are stored, so an untyped line moves nothing.
func (p *Production) Movements() []entity.StockMovement {
	out := make([]entity.StockMovement, 0, len(p.Lines))
	for _, l := range p.Lines {
		var rt entity.RecordType
		switch l.Type {
		case LineProduced:
			rt = entity.RecordTypeReceipt
		case LineConsumed:
			rt = entity.RecordTypeExpense
		default:
			continue
		}
		out = append(out, documents.Movement(p, rt, l.Line, l.ItemID, l.WarehouseID, l.Quantity, p.ReferenceNo))
	}
	return out
}

func (p *Production) Refs() []documents.Ref {
	var refs []documents.Ref
	for i, l := range p.Lines {
		refs = append(refs, documents.ItemWarehouseRefs(i, l.ItemID, l.WarehouseID)...)
	}
	return refs
}

// Clone returns a deep copy.
func (p *Production) Clone() *Production {
	c := *p
	c.Lines = append([]Line(nil), p.Lines...)
	return &c
}

var _ documents.Document = (*Production)(nil)
