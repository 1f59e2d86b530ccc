// file: calendar/placement.go
package calendar

import (
	"fmt"
	"time"

	"climb-calendar/models"
)

// PlacementKind says which part of an item's span a day shows.
type PlacementKind int

const (
	PlacementSingle PlacementKind = iota + 1
	PlacementStart
	PlacementMiddle
	PlacementEnd
)

func (k PlacementKind) String() string {
	switch k {
	case PlacementSingle:
		return "single"
	case PlacementStart:
		return "start"
	case PlacementMiddle:
		return "middle"
	case PlacementEnd:
		return "end"
	default:
		return fmt.Sprintf("PlacementKind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k PlacementKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Placement is an item shown on a day.
type Placement struct {
	Kind PlacementKind `json:"kind"`
	Item models.Item   `json:"item"`
}

// Classify places item on day. ok is false when day is outside the item's span.
func Classify(day time.Time, item models.Item) (kind PlacementKind, ok bool) {
	n := item.Duration()
	d := DaysBetween(item.Start(), day)
	switch {
	case d < 0 || d >= n:
		return 0, false
	case n == 1:
		return PlacementSingle, true
	case d == 0:
		return PlacementStart, true
	case d == n-1:
		return PlacementEnd, true
	default:
		return PlacementMiddle, true
	}
}

// PlacementsOn returns every item spanning day, in input order.
func PlacementsOn(day time.Time, items []models.Item) []Placement {
	var out []Placement
	for _, it := range items {
		if kind, ok := Classify(day, it); ok {
			out = append(out, Placement{Kind: kind, Item: it})
		}
	}
	return out
}

// Project places items on every in-month cell of g, keyed by DayKey.
// Days without items are absent.
func Project(g MonthGrid, items []models.Item) map[string][]Placement {
	out := make(map[string][]Placement)
	for _, row := range g.Rows {
		for _, cell := range row {
			if !cell.InMonth {
				continue
			}
			if ps := PlacementsOn(cell.Date, items); len(ps) > 0 {
				out[DayKey(cell.Date)] = ps
			}
		}
	}
	return out
}
