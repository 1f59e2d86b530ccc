// file: calendar/format.go
package calendar

import (
	"time"

	"climb-calendar/models"
)

// DisplayDate is the human readable layout, e.g. "Mon Apr 01 2024".
const DisplayDate = "Mon Jan 02 2006"

// StartDay is the item's first day.
func StartDay(item models.Item) time.Time {
	return DayOf(item.Start())
}

// EndDay is the item's last day; the start day for single-day items.
func EndDay(item models.Item) time.Time {
	return StartDay(item).AddDate(0, 0, item.Duration()-1)
}

// FormatStart renders the first day.
func FormatStart(item models.Item) string {
	return StartDay(item).Format(DisplayDate)
}

// FormatEnd renders the last day.
func FormatEnd(item models.Item) string {
	return EndDay(item).Format(DisplayDate)
}

// ExclusiveEnd is the day after the last day, as all-day calendar formats
// expect.
func ExclusiveEnd(item models.Item) time.Time {
	return StartDay(item).AddDate(0, 0, item.Duration())
}
