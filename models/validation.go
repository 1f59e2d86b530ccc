// file: models/validation.go
package models

import (
	"errors"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// FieldError describes one failed constraint. Tag is the rule name
// (required, min, max, oneof) and Param its argument.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

// ValidationError maps field names to the first constraint they failed.
type ValidationError struct {
	Fields map[string]FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(competitionBounds, CompetitionNew{})
	v.RegisterStructValidation(userEventBounds, UserEventNew{})
	return v
}

// ----- bounds -----

// Struct-level rules run after the field tags, so a missing name is
// reported as required and not also as too short.

func competitionBounds(sl validator.StructLevel) {
	c := sl.Current().Interface().(CompetitionNew)
	checkName(sl, c.Name)
	checkDuration(sl, c.DateDuration, DateDurationMaxCompetition)
}

func userEventBounds(sl validator.StructLevel) {
	e := sl.Current().Interface().(UserEventNew)
	checkName(sl, e.Name)
	checkDuration(sl, e.DateDuration, DateDurationMaxUserEvent)
}

func checkName(sl validator.StructLevel, name string) {
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
	case n < NameMinLength:
		sl.ReportError(name, "name", "Name", "min", strconv.Itoa(NameMinLength))
	case n > NameMaxLength:
		sl.ReportError(name, "name", "Name", "max", strconv.Itoa(NameMaxLength))
	}
}

func checkDuration(sl validator.StructLevel, days, max int) {
	switch {
	case days < DateDurationMin:
		sl.ReportError(days, "dateDuration", "DateDuration", "min", strconv.Itoa(DateDurationMin))
	case days > max:
		sl.ReportError(days, "dateDuration", "DateDuration", "max", strconv.Itoa(max))
	}
}

// ValidateCompetition checks a proposed competition. It has no side effects.
func ValidateCompetition(c CompetitionNew) error {
	return check(c)
}

// ValidateUserEvent checks a proposed personal event.
func ValidateUserEvent(e UserEventNew) error {
	return check(e)
}

func check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make(map[string]FieldError, len(verrs))}
	for _, fe := range verrs {
		name := fe.Field()
		if _, seen := out.Fields[name]; seen {
			continue
		}
		out.Fields[name] = FieldError{Field: name, Tag: fe.Tag(), Param: fe.Param()}
	}
	return out
}
