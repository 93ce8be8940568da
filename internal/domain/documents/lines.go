package documents

import (
	"fmt"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain"
)

// Movement projects one line of doc into a stock register row.
func Movement(
	doc Document,
	rt entity.RecordType,
	line entity.Line,
	itemID, warehouseID id.ID,
	qty types.Quantity,
	reference string,
) entity.StockMovement {
	return entity.NewStockMovement(
		doc.GetID(), string(doc.Kind()), doc.GetDate(), rt,
		line.LineID, line.LineNo, itemID, warehouseID, qty, reference,
	)
}

// LineRef is a reference held by field of the i-th line.
func LineRef(i int, field, catalog string, ref id.ID) Ref {
	return Ref{Field: LinePath(i, field), Catalog: catalog, ID: ref}
}

// ItemWarehouseRefs returns the item and warehouse references of the i-th line.
func ItemWarehouseRefs(i int, itemID, warehouseID id.ID) []Ref {
	return []Ref{
		LineRef(i, "itemId", domain.CatalogItem, itemID),
		LineRef(i, "warehouseId", domain.CatalogWarehouse, warehouseID),
	}
}

// ContactRef returns the header contact reference, if set.
func ContactRef(contactID *id.ID) []Ref {
	if contactID == nil || id.IsNil(*contactID) {
		return nil
	}
	return []Ref{{Field: "contactId", Catalog: domain.CatalogContact, ID: *contactID}}
}

// LinePath is the field error path of field in the i-th line.
func LinePath(i int, field string) string {
	return fmt.Sprintf("lines[%d].%s", i, field)
}

// NormalizeHeader truncates the header date to the calendar day.
func NormalizeHeader(h *entity.Header) {
	h.Date = entity.TruncateDay(h.Date)
}

// InRange reports whether date lies within the optional [from, to] bounds of a list filter.
func (f ListFilter) InRange(date time.Time) bool {
	if f.DateFrom != nil && date.Before(entity.TruncateDay(*f.DateFrom)) {
		return false
	}
	if f.DateTo != nil && date.After(entity.TruncateDay(*f.DateTo)) {
		return false
	}
	return true
}
