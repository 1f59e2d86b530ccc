// file: websocket/messages.go
package websocket

import (
	"time"

	"climb-calendar/cache"
)

// client actions
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// server actions
const (
	ActionSnapshot     = "snapshot"
	ActionNotification = "notification"
	ActionError        = "error"
)

// resources a client may subscribe to
const (
	ResourceCompetitions = "competitions"
	ResourceUserEvents   = "userEvents"
)

// ClientMessage is what a browser sends.
type ClientMessage struct {
	Action   string `json:"action"`
	Resource string `json:"resource"`
}

// SnapshotMessage carries the current entry of a subscribed resource.
type SnapshotMessage struct {
	Action   string      `json:"action"`
	Resource string      `json:"resource"`
	Entry    cache.Entry `json:"entry"`
	Error    string      `json:"error,omitempty"`
}

func newSnapshot(resource string, e cache.Entry) SnapshotMessage {
	return SnapshotMessage{Action: ActionSnapshot, Resource: resource, Entry: e, Error: e.ErrorText()}
}

// NotificationMessage reports the outcome of a mutation to the session that
// started it.
type NotificationMessage struct {
	Action  string    `json:"action"`
	Title   string    `json:"title"`
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// ErrorMessage tells the client a request could not be served.
type ErrorMessage struct {
	Action   string `json:"action"`
	Resource string `json:"resource,omitempty"`
	Error    string `json:"error"`
}
