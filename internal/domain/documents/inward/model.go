// Package inward records goods received: purchases and sales returns.
package inward

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

// Type is the inward sub-type. Both add to stock.
type Type string

const (
	TypePurchase    Type = "purchase"
	TypeSalesReturn Type = "sales_return"
)

// Inward is a goods receipt header.
type Inward struct {
	entity.Header

	Type      Type   `db:"type" json:"type" validate:"required,oneof=purchase sales_return"`
	InvoiceNo string `db:"invoice_no" json:"invoiceNo" validate:"required,max=100"`
	ContactID *id.ID `db:"contact_id" json:"contactId,omitempty"`

	Lines []Line `db:"-" json:"lines" validate:"required,min=1,dive"`
}

// Line is a received quantity.
type Line struct {
	entity.Line

	ItemID      id.ID          `db:"item_id" json:"itemId" validate:"required"`
	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId" validate:"required"`
	Quantity    types.Quantity `db:"quantity" json:"quantity" validate:"gt=0,whole"`
}

// New creates an empty inward of type t.
func New(date time.Time, t Type, invoiceNo string) *Inward {
	return &Inward{Header: entity.NewHeader(date), Type: t, InvoiceNo: invoiceNo}
}

// AddLine appends a line.
func (d *Inward) AddLine(itemID, warehouseID id.ID, qty types.Quantity) {
	d.Lines = append(d.Lines, Line{ItemID: itemID, WarehouseID: warehouseID, Quantity: qty})
}

func (d *Inward) Kind() ledger.Kind { return ledger.KindInward }

func (d *Inward) GetHeader() *entity.Header { return &d.Header }

func (d *Inward) GetContactID() *id.ID { return d.ContactID }

func (d *Inward) Normalize() {
	documents.NormalizeHeader(&d.Header)
	for i := range d.Lines {
		d.Lines[i].Renumber(i + 1)
	}
}

// Validate implements entity.Validatable.
func (d *Inward) Validate(ctx context.Context) error {
	return validation.Check(d)
}

func (d *Inward) Movements() []entity.StockMovement {
	out := make([]entity.StockMovement, 0, len(d.Lines))
	for _, l := range d.Lines {
		out = append(out, documents.Movement(d, entity.RecordTypeReceipt, l.Line, l.ItemID, l.WarehouseID, l.Quantity, d.InvoiceNo))
	}
	return out
}

func (d *Inward) Refs() []documents.Ref {
	refs := documents.ContactRef(d.ContactID)
	for i, l := range d.Lines {
		refs = append(refs, documents.ItemWarehouseRefs(i, l.ItemID, l.WarehouseID)...)
	}
	return refs
}

// Clone returns a deep copy.
func (d *Inward) Clone() *Inward {
	c := *d
	c.Lines = append([]Line(nil), d.Lines...)
	if d.ContactID != nil {
		contact := *d.ContactID
		c.ContactID = &contact
	}
	return &c
}

var _ documents.Document = (*Inward)(nil)
