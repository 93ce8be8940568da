// Package period holds the active accounting period and the guard every
// transaction date must pass.
package period

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
)

// ActiveName is the name of the single active period record.
const ActiveName = "Active Period"

// Period is an inclusive range of calendar days.
type Period struct {
	Name      string    `db:"name" json:"name"`
	Start     time.Time `db:"start_date" json:"startDate"`
	End       time.Time `db:"end_date" json:"endDate"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

// New returns the active period for [start, end].
func New(start, end time.Time) (*Period, error) {
	p := &Period{
		Name:  ActiveName,
		Start: entity.TruncateDay(start),
		End:   entity.TruncateDay(end),
	}
	var fe apperror.FieldErrors
	if p.Start.IsZero() {
		fe.Add("startDate", apperror.CodeRequired, "start date is required")
	}
	if p.End.IsZero() {
		fe.Add("endDate", apperror.CodeRequired, "end date is required")
	}
	if fe.Empty() && p.End.Before(p.Start) {
		fe.Add("endDate", apperror.CodeInvalid, "end date must not be before start date")
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// Contains reports whether date falls on a day within the period.
func (p *Period) Contains(date time.Time) bool {
	d := entity.TruncateDay(date)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Validate is the period guard. It fails with OUT_OF_PERIOD when no period
// is active or date lies outside it.
func Validate(date time.Time, active *Period) error {
	day := entity.TruncateDay(date).Format(time.DateOnly)
	if active == nil {
		return apperror.NewOutOfPeriod(day, "", "")
	}
	if !active.Contains(date) {
		return apperror.NewOutOfPeriod(day, active.Start.Format(time.DateOnly), active.End.Format(time.DateOnly))
	}
	return nil
}

// Provider resolves the active period. A nil period without error means none is configured.
type Provider interface {
	Active(ctx context.Context) (*Period, error)
}

// Fixed is a Provider that always returns the same period.
type Fixed struct {
	Period *Period
}

// Active implements Provider.
func (f Fixed) Active(context.Context) (*Period, error) { return f.Period, nil }
