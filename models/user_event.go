// file: models/user_event.go
package models

import "time"

// UserEventNew carries the editable fields of a personal event.
type UserEventNew struct {
	Name         string    `json:"name" validate:"required"`
	Date         time.Time `json:"date" validate:"required"`
	DateDuration int       `json:"dateDuration"`
	Type         string    `json:"type,omitempty" validate:"max=100"`
}

// UserEvent is a stored personal event. It lives under its owner's partition.
type UserEvent struct {
	ID string `json:"id"`
	UserEventNew
}
