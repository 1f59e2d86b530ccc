// file: calendar/grid.go
package calendar

import "time"

// GridOptions controls month layout.
type GridOptions struct {
	WeekStart time.Weekday `json:"weekStart"`
	// SixWeeks pads every month to six rows.
	SixWeeks bool `json:"sixWeeks"`
}

// DefaultGridOptions starts weeks on Monday and keeps all months the same height.
var DefaultGridOptions = GridOptions{WeekStart: time.Monday, SixWeeks: true}

// Cell is one day of a month grid. Cells of padding rows have a zero Date.
type Cell struct {
	Date        time.Time `json:"date"`
	InMonth     bool      `json:"inMonth"`
	Today       bool      `json:"today"`
	Interactive bool      `json:"interactive"`
}

// Empty reports whether the cell belongs to a padding row.
func (c Cell) Empty() bool {
	return c.Date.IsZero()
}

// MonthGrid is a month laid out in week rows of seven columns.
type MonthGrid struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Rows  [][7]Cell  `json:"rows"`
}

// Month lays out the month containing month. Leading and trailing cells of
// the first and last week come from the neighbouring months and are not
// interactive.
func Month(today, month time.Time, opts GridOptions) MonthGrid {
	first := Date(month.Year(), month.Month(), 1)
	offset := (int(first.Weekday()) - int(opts.WeekStart) + 7) % 7
	days := daysIn(first.Year(), first.Month())
	rows := (offset + days + 6) / 7
	start := first.AddDate(0, 0, -offset)

	g := MonthGrid{Year: first.Year(), Month: first.Month(), Rows: make([][7]Cell, 0, 6)}
	for r := 0; r < rows; r++ {
		var row [7]Cell
		for col := range row {
			d := start.AddDate(0, 0, r*7+col)
			in := d.Month() == first.Month()
			row[col] = Cell{Date: d, InMonth: in, Interactive: in, Today: SameDay(d, today)}
		}
		g.Rows = append(g.Rows, row)
	}
	if opts.SixWeeks {
		for len(g.Rows) < 6 {
			g.Rows = append(g.Rows, [7]Cell{})
		}
	}
	return g
}

// Year lays out all twelve months of year.
func Year(today time.Time, year int, opts GridOptions) []MonthGrid {
	grids := make([]MonthGrid, 0, 12)
	for m := time.January; m <= time.December; m++ {
		grids = append(grids, Month(today, Date(year, m, 1), opts))
	}
	return grids
}

// WeekDays returns the column order of a grid.
func WeekDays(opts GridOptions) []time.Weekday {
	out := make([]time.Weekday, 7)
	for i := range out {
		out[i] = time.Weekday((int(opts.WeekStart) + i) % 7)
	}
	return out
}

func daysIn(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}
