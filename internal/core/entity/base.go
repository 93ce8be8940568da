// Package entity holds the shapes shared by catalogs, ledger headers and
// register rows.
package entity

import (
	"context"
	"time"

	"stockledger/internal/core/id"
)

// Validatable records check their own invariants without storage access and
// return field errors.
type Validatable interface {
	Validate(ctx context.Context) error
}

// Now is the current UTC time at microsecond precision, the resolution
// Postgres keeps, so stored and in-memory timestamps compare equal.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// BaseEntity is the identity and optimistic-lock version of a stored record.
// Version starts at 1 and grows by one on every successful update.
type BaseEntity struct {
	ID      id.ID `db:"id" json:"id"`
	Version int   `db:"version" json:"version"`
}

func newBaseEntity() BaseEntity {
	return BaseEntity{ID: id.New(), Version: 1}
}

func (b *BaseEntity) GetID() id.ID     { return b.ID }
func (b *BaseEntity) GetVersion() int  { return b.Version }
func (b *BaseEntity) SetVersion(v int) { b.Version = v }

// BaseDocument adds creation and change attribution to BaseEntity.
type BaseDocument struct {
	BaseEntity

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

// NewBaseDocument returns a document base with a fresh id, stamped now.
func NewBaseDocument() BaseDocument {
	now := Now()
	return BaseDocument{BaseEntity: newBaseEntity(), CreatedAt: now, UpdatedAt: now}
}

// Touch marks the document as changed now.
func (b *BaseDocument) Touch() { b.UpdatedAt = Now() }

func (b *BaseDocument) SetCreatedBy(userID string) { b.CreatedBy = userID }
func (b *BaseDocument) SetUpdatedBy(userID string) { b.UpdatedBy = userID }

// KeepCreation copies creation time and author from the stored version, so
// an edit cannot rewrite them.
func (b *BaseDocument) KeepCreation(stored BaseDocument) {
	b.CreatedAt = stored.CreatedAt
	b.CreatedBy = stored.CreatedBy
}

// BaseCatalog is the base of master records, which carry no attribution.
type BaseCatalog struct {
	BaseEntity
}

// NewBaseCatalog returns a catalog base with a fresh id.
func NewBaseCatalog() BaseCatalog {
	return BaseCatalog{BaseEntity: newBaseEntity()}
}
