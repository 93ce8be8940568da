package dto

import "time"

// SetPeriodRequest replaces the active period. Dates are calendar days.
type SetPeriodRequest struct {
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate" binding:"required"`
}

// Parse returns the period bounds.
func (r SetPeriodRequest) Parse() (start, end time.Time, err error) {
	if start, err = ParseDate(r.StartDate); err != nil {
		return
	}
	end, err = ParseDate(r.EndDate)
	return
}
