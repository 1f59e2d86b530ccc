// Package calendar derives views of the competition list: filtering, date
// ordering, month grids with item placements and ICS export.
// file: calendar/filter.go
package calendar

import (
	"errors"
	"fmt"

	"climb-calendar/models"
)

// ErrFilterValue is returned by Validate for a type or category that does
// not exist.
var ErrFilterValue = errors.New("unknown filter value")

// Filter narrows a competition list. Zero fields match everything; set
// location flags must all hold.
type Filter struct {
	Domestic      bool                   `form:"bg" json:"bg"`
	Balkan        bool                   `form:"balkan" json:"balkan"`
	International bool                   `form:"international" json:"international"`
	Type          models.CompetitionType `form:"type" json:"type,omitempty"`
	Category      models.Category        `form:"category" json:"category,omitempty"`
}

// IsZero reports whether the filter matches every competition.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Validate rejects a type or category no competition can have.
func (f Filter) Validate() error {
	if f.Type != "" {
		if _, ok := models.ParseCompetitionType(string(f.Type)); !ok {
			return fmt.Errorf("%w: type %q", ErrFilterValue, f.Type)
		}
	}
	if f.Category != "" {
		if _, ok := models.ParseCategory(string(f.Category)); !ok {
			return fmt.Errorf("%w: category %q", ErrFilterValue, f.Category)
		}
	}
	return nil
}

// Match reports whether c passes every set predicate.
func (f Filter) Match(c models.Competition) bool {
	if f.Domestic && !c.Domestic() {
		return false
	}
	if f.Balkan && !c.Balkan {
		return false
	}
	if f.International && !c.International {
		return false
	}
	if f.Type != "" && !c.HasType(f.Type) {
		return false
	}
	if f.Category != "" && !c.HasCategory(f.Category) {
		return false
	}
	return true
}

// Apply returns the competitions matching f in their original order.
// The input slice is not modified.
func Apply(cs []models.Competition, f Filter) []models.Competition {
	out := make([]models.Competition, 0, len(cs))
	for _, c := range cs {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}
