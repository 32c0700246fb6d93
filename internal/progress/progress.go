// Package progress derives reading completion percentages from stored
// page counts. The percentage is never persisted; callers recompute it
// whenever page_read or total_pages changes.
package progress

import "math"

// Percentage returns the completion percentage for a book, clamped to
// [0, 100]. A total of 0 (or less) means the page count is unknown and
// always yields 0.
func Percentage(pageRead, totalPages int) int {
	if totalPages <= 0 {
		return 0
	}

	pct := int(math.Round(float64(pageRead) / float64(totalPages) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
