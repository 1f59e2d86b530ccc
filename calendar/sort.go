// file: calendar/sort.go
package calendar

import (
	"slices"

	"climb-calendar/models"
)

// SortByDate returns a copy of cs ordered by start date. Competitions on the
// same day keep their relative order.
func SortByDate(cs []models.Competition) []models.Competition {
	out := slices.Clone(cs)
	slices.SortStableFunc(out, func(a, b models.Competition) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

// SortItems returns a copy of items ordered by start date.
func SortItems(items []models.Item) []models.Item {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b models.Item) int {
		return a.Start().Compare(b.Start())
	})
	return out
}
