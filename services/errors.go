// file: services/errors.go
package services

import "errors"

// ErrPermission is matched by every *PermissionError.
var ErrPermission = errors.New("permission denied")

// PermissionError reports a mutation refused before it reached the store.
type PermissionError struct {
	Action string
}

func (e *PermissionError) Error() string {
	return "only an authorized user may " + e.Action
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrPermission
}
