// Package documents provides the transaction coordinator shared by all ledger
// kinds: a header and its lines are validated as a whole and written atomically
// together with their stock movements and kind-specific side effects.
package documents

import (
	"context"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/ledger"
)

// Document is a ledger transaction: a header with its ordered lines.
type Document interface {
	entity.Validatable

	GetID() id.ID
	GetVersion() int
	GetDate() time.Time
	GetHeader() *entity.Header
	Kind() ledger.Kind

	// Normalize prepares a submission for storage: it truncates the date to
	// the day and renumbers the lines.
	Normalize()

	// Movements projects the lines into stock register rows.
	// Kinds that do not move stock return nil.
	Movements() []entity.StockMovement

	// Refs lists the master records the document points to.
	Refs() []Ref
}

// Ref is a reference from a document field to a master record.
type Ref struct {
	Field   string
	Catalog string
	ID      id.ID
}

// Referenced is implemented by headers carrying a unique reference number.
type Referenced interface {
	GetReference() string
	SetReference(ref string)
}

// Op is the kind of change being coordinated.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes one coordinated write. For deletes Doc is the stored
// document; for updates Prev is the stored version loaded under lock.
type Change[D Document] struct {
	Op      Op
	Doc     D
	Prev    D
	HasPrev bool
}

// ListFilter adds date and counterparty filters to the common list filter.
type ListFilter struct {
	domain.ListFilter

	DateFrom  *time.Time
	DateTo    *time.Time
	ContactID *id.ID
}

// Repository persists one ledger kind. Reads return the document with its lines.
type Repository[D Document] interface {
	// Create inserts the header.
	Create(ctx context.Context, doc D) error
	// Update stores the header if its version matches and increments the version.
	Update(ctx context.Context, doc D) error
	// Delete removes the header with its lines.
	Delete(ctx context.Context, docID id.ID) error
	// SaveLines replaces the full line set.
	SaveLines(ctx context.Context, doc D) error

	GetByID(ctx context.Context, docID id.ID) (D, error)
	// GetForUpdate reads and row-locks the header until the transaction ends.
	GetForUpdate(ctx context.Context, docID id.ID) (D, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[D], error)
}

// ReferenceIndex answers reference-number uniqueness for one kind.
type ReferenceIndex interface {
	ReferenceTaken(ctx context.Context, reference string, exclude id.ID) (bool, error)
}

// MovementStore keeps the stock register rows of every recorder.
type MovementStore interface {
	ReplaceMovements(ctx context.Context, recorderID id.ID, movements []entity.StockMovement) error
	DeleteMovementsByRecorder(ctx context.Context, recorderID id.ID) error
}

// Event is published (via the outbox) for every committed change.
type Event struct {
	Kind       ledger.Kind       `json:"kind"`
	DocumentID id.ID             `json:"documentId"`
	Op         Op                `json:"op"`
	Keys       []ledger.StockKey `json:"keys,omitempty"`
	UserID     string            `json:"userId,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// EventPublisher records events within the caller's transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// StockInvalidator drops derived balances for keys after a commit.
type StockInvalidator interface {
	Invalidate(ctx context.Context, keys []ledger.StockKey) error
}
