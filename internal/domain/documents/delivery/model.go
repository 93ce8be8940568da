// Package delivery tracks goods loaned out (issues) and their returns. Neither
// moves stock: an issue records an obligation and a return settles part of it,
// raising the returned quantity of the issue line it references.
package delivery

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

// Issue is a delivery issue header.
type Issue struct {
	entity.Header

	// ReferenceNo is unique among issues; generated when empty.
	ReferenceNo string `db:"reference_no" json:"referenceNo" validate:"max=100"`
	ContactID   id.ID  `db:"contact_id" json:"contactId" validate:"required"`
	ToPerson    string `db:"to_person" json:"toPerson,omitempty" validate:"max=200"`
	VehicleNo   string `db:"vehicle_no" json:"vehicleNo,omitempty" validate:"max=50"`

	Lines []IssueLine `db:"-" json:"lines" validate:"required,min=1,dive"`
}

// IssueLine is a quantity handed out from a warehouse.
type IssueLine struct {
	entity.Line

	ItemID      id.ID          `db:"item_id" json:"itemId" validate:"required"`
	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId" validate:"required"`
	Quantity    types.Quantity `db:"quantity" json:"quantity" validate:"gt=0,whole"`

	// ReturnedQuantity is maintained by returns and never set by clients.
	ReturnedQuantity types.Quantity `db:"returned_quantity" json:"returnedQuantity"`
}

// Pending is the quantity still to be returned.
func (l IssueLine) Pending() types.Quantity { return l.Quantity - l.ReturnedQuantity }

// NewIssue creates an empty issue to contactID.
func NewIssue(date time.Time, contactID id.ID) *Issue {
	return &Issue{Header: entity.NewHeader(date), ContactID: contactID}
}

// AddLine appends a line.
func (d *Issue) AddLine(itemID, warehouseID id.ID, qty types.Quantity) {
	d.Lines = append(d.Lines, IssueLine{ItemID: itemID, WarehouseID: warehouseID, Quantity: qty})
}

func (d *Issue) Kind() ledger.Kind { return ledger.KindDeliveryIssue }

func (d *Issue) GetHeader() *entity.Header { return &d.Header }

func (d *Issue) GetReference() string { return d.ReferenceNo }

func (d *Issue) SetReference(ref string) { d.ReferenceNo = ref }

func (d *Issue) GetContactID() *id.ID { return &d.ContactID }

func (d *Issue) Normalize() {
	documents.NormalizeHeader(&d.Header)
	for i := range d.Lines {
		d.Lines[i].Renumber(i + 1)
	}
}

// Validate implements entity.Validatable.
func (d *Issue) Validate(ctx context.Context) error {
	return validation.Check(d)
}

func (d *Issue) Movements() []entity.StockMovement { return nil }

func (d *Issue) Refs() []documents.Ref {
	refs := documents.ContactRef(&d.ContactID)
	for i, l := range d.Lines {
		refs = append(refs, documents.ItemWarehouseRefs(i, l.ItemID, l.WarehouseID)...)
	}
	return refs
}

// HasReturns reports whether any line has been partly or fully returned.
func (d *Issue) HasReturns() bool {
	for _, l := range d.Lines {
		if l.ReturnedQuantity > 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (d *Issue) Clone() *Issue {
	c := *d
	c.Lines = append([]IssueLine(nil), d.Lines...)
	return &c
}

// Return is a delivery return header.
type Return struct {
	entity.Header

	Lines []ReturnLine `db:"-" json:"lines" validate:"required,min=1,dive"`
}

// ReturnLine settles Quantity of one issue line into a warehouse.
type ReturnLine struct {
	entity.Line

	IssueLineID id.ID `db:"issue_line_id" json:"issueLineId" validate:"required"`
	// ItemID is copied from the issue line.
	ItemID      id.ID          `db:"item_id" json:"itemId"`
	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId" validate:"required"`
	Quantity    types.Quantity `db:"quantity" json:"quantity" validate:"gt=0,whole"`
}

// NewReturn creates an empty return.
func NewReturn(date time.Time) *Return {
	return &Return{Header: entity.NewHeader(date)}
}

// AddLine appends a line returning qty of issueLineID into warehouseID.
func (r *Return) AddLine(issueLineID, warehouseID id.ID, qty types.Quantity) {
	r.Lines = append(r.Lines, ReturnLine{IssueLineID: issueLineID, WarehouseID: warehouseID, Quantity: qty})
}

func (r *Return) Kind() ledger.Kind { return ledger.KindDeliveryReturn }

func (r *Return) GetHeader() *entity.Header { return &r.Header }

func (r *Return) Normalize() {
	documents.NormalizeHeader(&r.Header)
	for i := range r.Lines {
		r.Lines[i].Renumber(i + 1)
	}
}

// Validate implements entity.Validatable.
func (r *Return) Validate(ctx context.Context) error {
	return validation.Check(r)
}

func (r *Return) Movements() []entity.StockMovement { return nil }

func (r *Return) Refs() []documents.Ref {
	var refs []documents.Ref
	for i, l := range r.Lines {
		refs = append(refs, documents.ItemWarehouseRefs(i, l.ItemID, l.WarehouseID)...)
	}
	return refs
}

// Returned sums the line quantities per issue line.
func (r *Return) Returned() map[id.ID]types.Quantity {
	out := make(map[id.ID]types.Quantity, len(r.Lines))
	for _, l := range r.Lines {
		out[l.IssueLineID] += l.Quantity
	}
	return out
}

// Clone returns a deep copy.
func (r *Return) Clone() *Return {
	c := *r
	c.Lines = append([]ReturnLine(nil), r.Lines...)
	return &c
}

// PendingLine is an issue line with its header context.
type PendingLine struct {
	IssueID     id.ID     `db:"issue_id" json:"issueId"`
	ReferenceNo string    `db:"reference_no" json:"referenceNo"`
	Date        time.Time `db:"date" json:"date"`
	ContactID   id.ID     `db:"contact_id" json:"contactId"`
	ToPerson    string    `db:"to_person" json:"toPerson,omitempty"`

	LineID      id.ID          `db:"line_id" json:"lineId"`
	LineNo      int            `db:"line_no" json:"lineNo"`
	ItemID      id.ID          `db:"item_id" json:"itemId"`
	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId"`
	Issued      types.Quantity `db:"quantity" json:"issuedQuantity"`
	Returned    types.Quantity `db:"returned_quantity" json:"returnedQuantity"`
}

// Pending is the quantity still to be returned.
func (p PendingLine) Pending() types.Quantity { return p.Issued - p.Returned }

// PendingFilter narrows a pending lookup. Nil fields match everything.
type PendingFilter struct {
	ContactID *id.ID
	ItemID    *id.ID
	ToPerson  string
}

// Matches reports whether p passes the filter.
func (f PendingFilter) Matches(p PendingLine) bool {
	if f.ContactID != nil && p.ContactID != *f.ContactID {
		return false
	}
	if f.ItemID != nil && p.ItemID != *f.ItemID {
		return false
	}
	if f.ToPerson != "" && p.ToPerson != f.ToPerson {
		return false
	}
	return true
}

var (
	_ documents.Document = (*Issue)(nil)
	_ documents.Document = (*Return)(nil)
)
