package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestValidate(t *testing.T) {
	p, err := New(day(2024, time.April, 1), day(2025, time.March, 31))
	require.NoError(t, err)

	tests := []struct {
		name string
		date time.Time
		ok   bool
	}{
		{"first day", day(2024, time.April, 1), true},
		{"last day", day(2025, time.March, 31), true},
		{"last day late evening", day(2025, time.March, 31).Add(23 * time.Hour), true},
		{"day before", day(2024, time.March, 31), false},
		{"day after", day(2025, time.April, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.date, p)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperror.IsOutOfPeriod(err))
			assert.True(t, apperror.IsValidation(err))
		})
	}
}

func TestValidate_NoActivePeriod(t *testing.T) {
	err := Validate(day(2024, time.May, 1), nil)
	assert.True(t, apperror.IsOutOfPeriod(err))
}

func TestNew_RejectsInvertedRange(t *testing.T) {
	_, err := New(day(2025, time.April, 1), day(2025, time.March, 31))
	require.Error(t, err)

	appErr, _ := apperror.AsAppError(err)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "endDate", appErr.Fields[0].Field)
}

func TestNew_SingleDay(t *testing.T) {
	p, err := New(day(2024, time.June, 1), day(2024, time.June, 1))
	require.NoError(t, err)
	assert.True(t, p.Contains(day(2024, time.June, 1)))
}
