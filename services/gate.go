// file: services/gate.go
package services

import (
	"context"

	"climb-calendar/auth"
)

// Gate is the slice of the identity gate the services consult.
type Gate interface {
	IsAdmin(ctx context.Context) bool
	CurrentUser(ctx context.Context) *auth.User
}
