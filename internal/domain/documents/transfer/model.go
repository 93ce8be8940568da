// Package transfer records stock moved between warehouses.
package transfer

import (
	"context"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/core/validation"
	"stockledger/internal/domain"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/ledger"
)

// Transfer is a stock transfer header.
type Transfer struct {
	entity.Header

	// ReferenceNo is unique among transfers; generated when empty.
	ReferenceNo string `db:"reference_no" json:"referenceNo" validate:"max=100"`

	Lines []Line `db:"-" json:"lines" validate:"required,min=1,dive"`
}

// Line moves Quantity of an item from one warehouse to another.
type Line struct {
	entity.Line

	ItemID          id.ID          `db:"item_id" json:"itemId" validate:"required"`
	FromWarehouseID id.ID          `db:"from_warehouse_id" json:"fromWarehouseId" validate:"required"`
	ToWarehouseID   id.ID          `db:"to_warehouse_id" json:"toWarehouseId" validate:"required,differs=FromWarehouseID"`
	Quantity        types.Quantity `db:"quantity" json:"quantity" validate:"gt=0,whole"`
}

// New creates an empty transfer.
func New(date time.Time, referenceNo string) *Transfer {
	return &Transfer{Header: entity.NewHeader(date), ReferenceNo: referenceNo}
}

// AddLine appends a line.
func (t *Transfer) AddLine(itemID, from, to id.ID, qty types.Quantity) {
	t.Lines = append(t.Lines, Line{ItemID: itemID, FromWarehouseID: from, ToWarehouseID: to, Quantity: qty})
}

func (t *Transfer) Kind() ledger.Kind { return ledger.KindTransfer }

func (t *Transfer) GetHeader() *entity.Header { return &t.Header }

func (t *Transfer) GetReference() string { return t.ReferenceNo }

func (t *Transfer) SetReference(ref string) { t.ReferenceNo = ref }

func (t *Transfer) Normalize() {
	documents.NormalizeHeader(&t.Header)
	for i := range t.Lines {
		t.Lines[i].Renumber(i + 1)
	}
}

// Validate implements entity.Validatable.
func (t *Transfer) Validate(ctx context.Context) error {
	return validation.Check(t)
}

// Movements takes each line quantity from the source and adds it to the destination.
func (t *Transfer) Movements() []entity.StockMovement {
	out := make([]entity.StockMovement, 0, 2*len(t.Lines))
	for _, l := range t.Lines {
		out = append(out,
			documents.Movement(t, entity.RecordTypeExpense, l.Line, l.ItemID, l.FromWarehouseID, l.Quantity, t.ReferenceNo),
			documents.Movement(t, entity.RecordTypeReceipt, l.Line, l.ItemID, l.ToWarehouseID, l.Quantity, t.ReferenceNo),
		)
	}
	return out
}

func (t *Transfer) Refs() []documents.Ref {
	var refs []documents.Ref
	for i, l := range t.Lines {
		refs = append(refs,
			documents.LineRef(i, "itemId", domain.CatalogItem, l.ItemID),
			documents.LineRef(i, "fromWarehouseId", domain.CatalogWarehouse, l.FromWarehouseID),
			documents.LineRef(i, "toWarehouseId", domain.CatalogWarehouse, l.ToWarehouseID),
		)
	}
	return refs
}

// Clone returns a deep copy.
func (t *Transfer) Clone() *Transfer {
	c := *t
	c.Lines = append([]Line(nil), t.Lines...)
	return &c
}

var _ documents.Document = (*Transfer)(nil)
