package fiscal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestYear(t *testing.T) {
	tests := []struct {
		in   time.Time
		want int
	}{
		{date(2024, time.April, 1), 2025},
		{date(2025, time.March, 31), 2025},
		{date(2024, time.March, 31), 2024},
		{date(2024, time.December, 31), 2025},
		{date(2025, time.January, 1), 2025},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Year(tt.in), tt.in.Format(time.DateOnly))
	}
}

func TestBounds(t *testing.T) {
	start, end := Bounds(2025)
	assert.Equal(t, date(2024, time.April, 1), start)
	assert.Equal(t, date(2025, time.March, 31), end)
	assert.Equal(t, 2025, Year(start))
	assert.Equal(t, 2025, Year(end))
	assert.Equal(t, 2026, Year(end.AddDate(0, 0, 1)))
}

func TestSame(t *testing.T) {
	assert.True(t, Same(date(2024, time.April, 1), date(2025, time.March, 31)))
	assert.False(t, Same(date(2024, time.March, 31), date(2024, time.April, 1)))
}
