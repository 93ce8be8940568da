// Package ledger names the transaction kinds and how their lines move stock.
package ledger

import (
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

// Kind identifies a ledger. It is stored as the recorder type of movements.
type Kind string

const (
	KindOpening        Kind = "opening"
	KindInward         Kind = "inward"
	KindOutward        Kind = "outward"
	KindProduction     Kind = "production"
	KindTransfer       Kind = "transfer"
	KindAdjustment     Kind = "adjustment"
	KindDeliveryIssue  Kind = "delivery_issue"
	KindDeliveryReturn Kind = "delivery_return"
)

// Kinds lists every ledger kind.
var Kinds = []Kind{
	KindOpening, KindInward, KindOutward, KindProduction,
	KindTransfer, KindAdjustment, KindDeliveryIssue, KindDeliveryReturn,
}

// MovesStock reports whether lines of k contribute to stock. Delivery
// issues and returns only track an obligation.
func (k Kind) MovesStock() bool {
	switch k {
	case KindDeliveryIssue, KindDeliveryReturn:
		return false
	}
	return true
}

func (k Kind) String() string { return string(k) }

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// entryOrder is the position of each (kind, direction) pair among movements
// of the same date in a stock ledger.
var entryOrder = []struct {
	kind  Kind
	rt    entity.RecordType
	label string
}{
	{KindOpening, entity.RecordTypeReceipt, "Opening Stock"},
	{KindInward, entity.RecordTypeReceipt, "Inward"},
	{KindOutward, entity.RecordTypeExpense, "Outward"},
	{KindProduction, entity.RecordTypeReceipt, "Production (Produced)"},
	{KindProduction, entity.RecordTypeExpense, "Production (Consumed)"},
	{KindTransfer, entity.RecordTypeReceipt, "Transfer In"},
	{KindTransfer, entity.RecordTypeExpense, "Transfer Out"},
	{KindAdjustment, entity.RecordTypeReceipt, "Adjustment (Increase)"},
	{KindAdjustment, entity.RecordTypeExpense, "Adjustment (Decrease)"},
}

// Rank orders movements of one date: opening, inward, outward, produced,
// consumed, transfer in, transfer out, adjustment increase, adjustment decrease.
// Unknown pairs sort last.
func Rank(kind Kind, rt entity.RecordType) int {
	for n, e := range entryOrder {
		if e.kind == kind && e.rt == rt {
			return n
		}
	}
	return len(entryOrder)
}

// Label is the display name of a movement in a stock ledger.
func Label(kind Kind, rt entity.RecordType) string {
	for _, e := range entryOrder {
		if e.kind == kind && e.rt == rt {
			return e.label
		}
	}
	return string(kind)
}

// StockKey is the (item, warehouse) pair stock is kept for.
type StockKey struct {
	ItemID      id.ID `json:"itemId"`
	WarehouseID id.ID `json:"warehouseId"`
}

// KeysOf returns the distinct stock keys touched by movements, in first-seen order.
func KeysOf(movements ...[]entity.StockMovement) []StockKey {
	seen := make(map[StockKey]bool)
	var out []StockKey
	for _, ms := range movements {
		for _, m := range ms {
			k := StockKey{ItemID: m.ItemID, WarehouseID: m.WarehouseID}
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}
