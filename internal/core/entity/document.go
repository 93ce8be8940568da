package entity

import (
	"time"

	"stockledger/internal/core/id"
)

// Header is the envelope shared by every ledger transaction: a business date,
// free-text remarks and creator attribution. Kind-specific references and
// counterparties live on the concrete header types.
type Header struct {
	BaseDocument

	// Date is the business date of the transaction (calendar day, UTC)
	Date time.Time `db:"date" json:"date" validate:"required"`

	// Remarks is an optional user comment
	Remarks string `db:"remarks" json:"remarks,omitempty" validate:"max=2000"`
}

// NewHeader creates a header for the given business date.
func NewHeader(date time.Time) Header {
	return Header{
		BaseDocument: NewBaseDocument(),
		Date:         TruncateDay(date),
	}
}

// GetDate returns the business date.
func (h *Header) GetDate() time.Time { return h.Date }

// TruncateDay drops the time of day, keeping the calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Line identifies a line within its header.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`
}

// Renumber gives the line a fresh id and its 1-based position.
// Edits replace the full line set, so line ids never survive a write.
func (l *Line) Renumber(n int) {
	l.LineID = id.New()
	l.LineNo = n
}
