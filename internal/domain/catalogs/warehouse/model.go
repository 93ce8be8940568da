// Package warehouse provides the Warehouse catalog.
// Warehouses form a tree for organizational grouping only; stock of a parent
// never includes its children.
package warehouse

import (
	"context"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

// Warehouse represents a storage location for goods.
type Warehouse struct {
	entity.Catalog

	// ParentID is the optional parent in the organizational tree
	ParentID *id.ID `db:"parent_id" json:"parentId,omitempty"`

	// Address is the physical address
	Address string `db:"address" json:"address,omitempty"`
}

// NewWarehouse creates a new Warehouse with required fields.
func NewWarehouse(code, name string) *Warehouse {
	return &Warehouse{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable interface.
func (w *Warehouse) Validate(ctx context.Context) error {
	if err := w.Catalog.Validate(ctx); err != nil {
		return err
	}
	if w.ParentID != nil && id.IsNil(*w.ParentID) {
		w.ParentID = nil
	}
	if w.ParentID != nil && *w.ParentID == w.ID {
		return apperror.NewFieldError("parentId", apperror.CodeInvalid, "warehouse cannot be its own parent")
	}
	return nil
}

// IsRoot returns true if warehouse has no parent.
func (w *Warehouse) IsRoot() bool {
	return w.ParentID == nil
}
