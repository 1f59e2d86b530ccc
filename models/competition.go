// Package models defines the calendar's domain types.
// file: models/competition.go
package models

import (
	"slices"
	"time"
)

// CompetitionType is the discipline a competition runs.
type CompetitionType string

const (
	TypeBoulder CompetitionType = "Boulder"
	TypeLead    CompetitionType = "Lead"
	TypeSpeed   CompetitionType = "Speed"
)

// CompetitionTypes lists every discipline in display order.
var CompetitionTypes = []CompetitionType{TypeBoulder, TypeLead, TypeSpeed}

// Category is an age group.
type Category string

const (
	CategoryU8     Category = "U8"
	CategoryU10    Category = "U10"
	CategoryU12    Category = "U12"
	CategoryU14    Category = "U14"
	CategoryU16    Category = "U16"
	CategoryYouthA Category = "YouthA"
	CategoryYouthB Category = "YouthB"
)

// Categories lists every age group in display order.
var Categories = []Category{
	CategoryU8, CategoryU10, CategoryU12, CategoryU14, CategoryU16, CategoryYouthA, CategoryYouthB,
}

// Duration and name bounds. The validator enforces them in
// models/validation.go; struct tags carry only presence and enum rules.
const (
	DateDurationMin            = 1
	DateDurationMaxCompetition = 7
	DateDurationMaxUserEvent   = 20
	NameMinLength              = 3
	NameMaxLength              = 100
)

// CompetitionNew carries the editable fields of a competition.
type CompetitionNew struct {
	Name          string            `json:"name" validate:"required"`
	Date          time.Time         `json:"date" validate:"required"`
	DateDuration  int               `json:"dateDuration"`
	Balkan        bool              `json:"balkan"`
	International bool              `json:"international"`
	Type          []CompetitionType `json:"type" validate:"required,min=1,dive,oneof=Boulder Lead Speed"`
	Category      []Category        `json:"category" validate:"required,min=1,dive,oneof=U8 U10 U12 U14 U16 YouthA YouthB"`
}

// Competition is a stored competition.
type Competition struct {
	ID string `json:"id"`
	CompetitionNew
}

// HasType reports whether t is one of the competition's disciplines.
func (c Competition) HasType(t CompetitionType) bool {
	return slices.Contains(c.Type, t)
}

// HasCategory reports whether cat is one of the competition's age groups.
func (c Competition) HasCategory(cat Category) bool {
	return slices.Contains(c.Category, cat)
}

// Domestic is true for competitions that are neither balkan nor international.
func (c Competition) Domestic() bool {
	return !c.Balkan && !c.International
}

// ParseCompetitionType returns the discipline named s.
func ParseCompetitionType(s string) (CompetitionType, bool) {
	t := CompetitionType(s)
	return t, slices.Contains(CompetitionTypes, t)
}

// ParseCategory returns the age group named s.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	return c, slices.Contains(Categories, c)
}
