package entity

import (
	"context"
	"strings"

	"stockledger/internal/core/apperror"
)

// Catalog is the base type for master records: groups, warehouses, contacts, items.
type Catalog struct {
	BaseCatalog

	// Code is an optional human-readable identifier, unique when set
	Code string `db:"code" json:"code,omitempty" validate:"max=50"`

	// Name is the display name
	Name string `db:"name" json:"name" validate:"required,max=200"`
}

// NewCatalog creates a new Catalog with generated ID.
func NewCatalog(code, name string) Catalog {
	return Catalog{
		BaseCatalog: NewBaseCatalog(),
		Code:        code,
		Name:        name,
	}
}

// Normalize trims user input.
func (c *Catalog) Normalize() {
	c.Code = strings.TrimSpace(c.Code)
	c.Name = strings.TrimSpace(c.Name)
}

// Validate implements Validatable interface.
func (c *Catalog) Validate(ctx context.Context) error {
	c.Normalize()
	if c.Name == "" {
		return apperror.NewFieldError("name", apperror.CodeRequired, "name is required")
	}
	return nil
}

// GetCatalog exposes the shared catalog fields of a concrete master record.
func (c *Catalog) GetCatalog() *Catalog { return c }
