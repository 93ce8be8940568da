// Package group provides item groups. Production lines may be classified by
// the group of their item (see documents/production).
package group

import (
	"context"

	"stockledger/internal/core/entity"
)

// Group classifies items.
type Group struct {
	entity.Catalog
}

// NewGroup creates a new Group.
func NewGroup(code, name string) *Group {
	return &Group{Catalog: entity.NewCatalog(code, name)}
}

// Validate implements entity.Validatable interface.
func (g *Group) Validate(ctx context.Context) error {
	return g.Catalog.Validate(ctx)
}
