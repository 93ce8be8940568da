// Package outward records goods dispatched: sales and purchase returns.
package outward

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

// Type is the outward sub-type. Both take from stock.
type Type string

const (
	TypeSale           Type = "sale"
	TypePurchaseReturn Type = "purchase_return"
)

// Outward is a goods dispatch header.
type Outward struct {
	entity.Header

	Type      Type   `db:"type" json:"type" validate:"required,oneof=sale purchase_return"`
	InvoiceNo string `db:"invoice_no" json:"invoiceNo" validate:"required,max=100"`
	ContactID *id.ID `db:"contact_id" json:"contactId,omitempty"`

	Lines []Line `db:"-" json:"lines" validate:"required,min=1,dive"`
}

// Line is a dispatched quantity.
type Line struct {
	entity.Line

	ItemID      id.ID          `db:"item_id" json:"itemId" validate:"required"`
	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId" validate:"required"`
	Quantity    types.Quantity `db:"quantity" json:"quantity" validate:"gt=0,whole"`
}

// New creates an empty outward of type t.
func New(date time.Time, t Type, invoiceNo string) *Outward {
	return &Outward{Header: entity.NewHeader(date), Type: t, InvoiceNo: invoiceNo}
}

// AddLine appends a line.
func (d *Outward) AddLine(itemID, warehouseID id.ID, qty types.Quantity) {
	d.Lines = append(d.Lines, Line{ItemID: itemID, WarehouseID: warehouseID, Quantity: qty})
}

func (d *Outward) Kind() ledger.Kind { return ledger.KindOutward }

func (d *Outward) GetHeader() *entity.Header { return &d.Header }

func (d *Outward) GetContactID() *id.ID { return d.ContactID }

func (d *Outward) Normalize() {
	documents.NormalizeHeader(&d.Header)
	for i := range d.Lines {
		d.Lines[i].Renumber(i + 1)
	}
}

// Validate implements entity.Validatable.
func (d *Outward) Validate(ctx context.Context) error {
	return validation.Check(d)
}

func (d *Outward) Movements() []entity.StockMovement {
	out := make([]entity.StockMovement, 0, len(d.Lines))
	for _, l := range d.Lines {
		out = append(out, documents.Movement(d, entity.RecordTypeExpense, l.Line, l.ItemID, l.WarehouseID, l.Quantity, d.InvoiceNo))
	}
	return out
}

func (d *Outward) Refs() []documents.Ref {
	refs := documents.ContactRef(d.ContactID)
	for i, l := range d.Lines {
		refs = append(refs, documents.ItemWarehouseRefs(i, l.ItemID, l.WarehouseID)...)
	}
	return refs
}

// Clone returns a deep copy.
func (d *Outward) Clone() *Outward {
	c := *d
	c.Lines = append([]Line(nil), d.Lines...)
	if d.ContactID != nil {
		contact := *d.ContactID
		c.ContactID = &contact
	}
	return &c
}

var _ documents.Document = (*Outward)(nil)
