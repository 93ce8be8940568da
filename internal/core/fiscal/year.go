// Package fiscal computes financial years. A financial year runs from
// April 1 to March 31 and is labeled by the calendar year in which it ends.
package fiscal

import "time"

// StartMonth is the first month of a financial year.
const StartMonth = time.April

// Year returns the label of the financial year containing t.
// 2024-04-01 and 2025-03-31 both belong to FY 2025.
func Year(t time.Time) int {
	if t.Month() >= StartMonth {
		return t.Year() + 1
	}
	return t.Year()
}

// Bounds returns the first and last calendar day (UTC) of financial year fy.
func Bounds(fy int) (start, end time.Time) {
	start = time.Date(fy-1, StartMonth, 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(fy, StartMonth, 0, 0, 0, 0, 0, time.UTC)
	return start, end
}

// Same reports whether a and b fall in the same financial year.
func Same(a, b time.Time) bool { return Year(a) == Year(b) }
