// Package item provides the item master: what is counted in every ledger.
package item

import (
	"context"
	"fmt"
	"strings"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/validation"
)

// IdentifierKind names one of the alternative identifier sets of an item.
type IdentifierKind string

const (
	KindAlias      IdentifierKind = "alias"
	KindPartNumber IdentifierKind = "part_number"
	KindBarcode    IdentifierKind = "barcode"
)

// Item is a stock-keeping unit.
type Item struct {
	entity.Catalog

	// Unit is the unit of measure, e.g. "pcs" or "kg"
	Unit string `db:"unit" json:"unit" validate:"required,max=20"`

	// GroupID is the group the item belongs to
	GroupID id.ID `db:"group_id" json:"groupId" validate:"required"`

	// Alternative identifiers; each value is unique across all items of its kind.
	Aliases     []string `db:"-" json:"aliases,omitempty" validate:"dive,required,max=200"`
	PartNumbers []string `db:"-" json:"partNumbers,omitempty" validate:"dive,required,max=100"`
	Barcodes    []string `db:"-" json:"barcodes,omitempty" validate:"dive,required,max=100"`
}

// NewItem creates a new Item with required fields.
func NewItem(code, name, unit string, groupID id.ID) *Item {
	return &Item{
		Catalog: entity.NewCatalog(code, name),
		Unit:    unit,
		GroupID: groupID,
	}
}

// Identifiers returns the alternative identifiers keyed by kind.
func (i *Item) Identifiers() map[IdentifierKind][]string {
	return map[IdentifierKind][]string{
		KindAlias:      i.Aliases,
		KindPartNumber: i.PartNumbers,
		KindBarcode:    i.Barcodes,
	}
}

// Validate implements entity.Validatable interface.
func (i *Item) Validate(ctx context.Context) error {
	i.Normalize()
	i.Unit = strings.TrimSpace(i.Unit)
	i.Aliases = trimAll(i.Aliases)
	i.PartNumbers = trimAll(i.PartNumbers)
	i.Barcodes = trimAll(i.Barcodes)

	fe := validation.Struct(i)
	fe = append(fe, duplicates("aliases", i.Aliases)...)
	fe = append(fe, duplicates("partNumbers", i.PartNumbers)...)
	fe = append(fe, duplicates("barcodes", i.Barcodes)...)
	return fe.Err()
}

func trimAll(values []string) []string {
	for n, v := range values {
		values[n] = strings.TrimSpace(v)
	}
	return values
}

func duplicates(field string, values []string) apperror.FieldErrors {
	var fe apperror.FieldErrors
	seen := make(map[string]bool, len(values))
	for n, v := range values {
		key := strings.ToLower(v)
		if v != "" && seen[key] {
			fe.Add(fmt.Sprintf("%s[%d]", field, n), apperror.CodeDuplicate, fmt.Sprintf("%q is listed twice", v))
		}
		seen[key] = true
	}
	return fe
}
