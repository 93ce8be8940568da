// Package entity provides core domain entities.
package entity

import (
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// RecordType defines movement direction in the stock register.
type RecordType string

const (
	// RecordTypeReceipt increases stock
	RecordTypeReceipt RecordType = "receipt"
	// RecordTypeExpense decreases stock
	RecordTypeExpense RecordType = "expense"
)

// MovementBase contains common fields for all register movements.
// Movements are immutable - they are never updated, only deleted and recreated.
type MovementBase struct {
	// RecorderID is the transaction header that produced this movement
	RecorderID id.ID `db:"recorder_id" json:"recorderId"`

	// RecorderType is the ledger kind of the recorder (e.g. "inward")
	RecorderType string `db:"recorder_type" json:"recorderType"`

	// LineID is the header line this movement projects
	LineID id.ID `db:"line_id" json:"lineId"`

	// LineNo is the 1-based line position within the header
	LineNo int `db:"line_no" json:"lineNo"`

	// Period is the business date of the recorder
	Period time.Time `db:"period" json:"period"`

	RecordType RecordType `db:"record_type" json:"recordType"`

	// CreatedAt is when the movement was recorded
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// StockMovement is one signed contribution of a ledger line to the stock of
// (item, warehouse). Transfer lines contribute two movements.
type StockMovement struct {
	MovementBase

	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`
	ItemID      id.ID `db:"item_id" json:"itemId"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// Reference is the recorder's invoice or reference number, for display
	Reference string `db:"reference" json:"reference,omitempty"`
}

// NewStockMovement creates a new stock movement.
func NewStockMovement(
	recorderID id.ID,
	recorderType string,
	period time.Time,
	recordType RecordType,
	lineID id.ID,
	lineNo int,
	itemID, warehouseID id.ID,
	quantity types.Quantity,
	reference string,
) StockMovement {
	return StockMovement{
		MovementBase: MovementBase{
			RecorderID:   recorderID,
			RecorderType: recorderType,
			LineID:       lineID,
			LineNo:       lineNo,
			Period:       period,
			RecordType:   recordType,
			CreatedAt:    time.Now().UTC(),
		},
		ItemID:      itemID,
		WarehouseID: warehouseID,
		Quantity:    quantity,
		Reference:   reference,
	}
}

// SignedQuantity returns quantity with sign based on record type.
// Receipt = positive, Expense = negative.
func (m *StockMovement) SignedQuantity() types.Quantity {
	if m.RecordType == RecordTypeExpense {
		return m.Quantity.Neg()
	}
	return m.Quantity
}
