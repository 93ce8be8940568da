// Package contact provides counterparties: suppliers and customers.
package contact

import (
	"context"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/validation"
)

// Type defines the role of a contact.
type Type string

const (
	TypeSupplier Type = "supplier"
	TypeCustomer Type = "customer"
)

// Contact is a supplier or customer referenced by inward, outward and delivery headers.
type Contact struct {
	entity.Catalog

	Type    Type   `db:"type" json:"type" validate:"required,oneof=supplier customer"`
	Phone   string `db:"phone" json:"phone,omitempty" validate:"max=30"`
	Email   string `db:"email" json:"email,omitempty" validate:"omitempty,email"`
	Address string `db:"address" json:"address,omitempty" validate:"max=500"`
}

// NewContact creates a new Contact with required fields.
func NewContact(name string, t Type) *Contact {
	return &Contact{
		Catalog: entity.NewCatalog("", name),
		Type:    t,
	}
}

// Validate implements entity.Validatable interface.
func (c *Contact) Validate(ctx context.Context) error {
	c.Normalize()
	return validation.Check(c)
}
