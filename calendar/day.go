// file: calendar/day.go
package calendar

import (
	"math"
	"time"
)

// ISODate is the layout of day keys.
const ISODate = "2006-01-02"

// DayOf returns t's calendar date at 12:00 UTC. Every day comparison goes
// through it so clock changes cannot move a date.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
}

// Date builds a normalised day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return DayOf(a).Equal(DayOf(b))
}

// DaysBetween counts whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(DayOf(b).Sub(DayOf(a)).Hours() / 24))
}

// DayKey formats t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return DayOf(t).Format(ISODate)
}

// ParseDay reads a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(ISODate, s)
	if err != nil {
		return time.Time{}, err
	}
	return DayOf(t), nil
}
