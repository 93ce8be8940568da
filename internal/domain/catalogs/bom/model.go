// Package bom provides bills of materials: the components consumed to
// produce one unit of an item.
package bom

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Component is one input of a bill of materials.
type Component struct {
	ItemID id.ID `db:"item_id" json:"itemId"`
	// Quantity per produced unit
	Quantity decimal.Decimal `db:"quantity" json:"quantity"`
}

// BillOfMaterial lists the components of an item. At most one exists per item.
type BillOfMaterial struct {
	entity.BaseCatalog

	ItemID     id.ID       `db:"item_id" json:"itemId"`
	Components []Component `db:"-" json:"components"`
}

// NewBillOfMaterial creates a BOM for itemID.
func NewBillOfMaterial(itemID id.ID, components ...Component) *BillOfMaterial {
	return &BillOfMaterial{
		BaseCatalog: entity.NewBaseCatalog(),
		ItemID:      itemID,
		Components:  components,
	}
}

// Validate implements entity.Validatable interface.
func (b *BillOfMaterial) Validate(ctx context.Context) error {
	var fe apperror.FieldErrors

	if id.IsNil(b.ItemID) {
		fe.Add("itemId", apperror.CodeRequired, "item is required")
	}
	if len(b.Components) == 0 {
		fe.Add("components", apperror.CodeRequired, "at least one component is required")
	}

	seen := make(map[id.ID]bool, len(b.Components))
	for n, c := range b.Components {
		field := fmt.Sprintf("components[%d]", n)
		switch {
		case id.IsNil(c.ItemID):
			fe.Add(field+".itemId", apperror.CodeRequired, "component item is required")
		case c.ItemID == b.ItemID:
			fe.Add(field+".itemId", apperror.CodeInvalid, "an item cannot be a component of itself")
		case seen[c.ItemID]:
			fe.Add(field+".itemId", apperror.CodeDuplicate, "component is listed twice")
		}
		seen[c.ItemID] = true
		if !c.Quantity.IsPositive() {
			fe.Add(field+".quantity", apperror.CodeInvalid, "quantity must be greater than 0")
		}
	}
	return fe.Err()
}

// Requirement is the quantity of a component needed for a production run.
type Requirement struct {
	ItemID   id.ID          `json:"itemId"`
	Quantity types.Quantity `json:"quantity"`
}

// Explode multiplies every component by quantity produced units.
func (b *BillOfMaterial) Explode(quantity types.Quantity) []Requirement {
	out := make([]Requirement, 0, len(b.Components))
	units := quantity.Decimal()
	for _, c := range b.Components {
		out = append(out, Requirement{
			ItemID:   c.ItemID,
			Quantity: types.NewQuantityFromDecimal(c.Quantity.Mul(units)),
		})
	}
	return out
}
