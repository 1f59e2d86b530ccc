// Package cache is the process-wide resource cache. Each logical key holds at
// most one authoritative value; values arrive from explicit fetches, local
// writes and push snapshots of a remote store, and subscribers of a key are
// told about every change.
// file: cache/entry.go
package cache

import (
	"fmt"
	"time"
)

// Key names a cache entry: a resource plus an optional scope such as a user
// or a browser session.
type Key struct {
	Resource string `json:"resource"`
	Scope    string `json:"scope,omitempty"`
}

func (k Key) String() string {
	if k.Scope == "" {
		return k.Resource
	}
	return k.Resource + "/" + k.Scope
}

// Status says whether an entry holds a value.
type Status int

const (
	StatusUnknown Status = iota
	StatusLoaded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Entry is a snapshot of one key. Version grows with every change to the key
// and orders changes across the whole cache.
type Entry struct {
	Key       Key       `json:"key"`
	Status    Status    `json:"status"`
	Value     any       `json:"value,omitempty"`
	Err       error     `json:"-"`
	Stale     bool      `json:"stale"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Loaded reports whether the entry holds a value, stale or not.
func (e Entry) Loaded() bool {
	return e.Status == StatusLoaded
}

// ErrorText is the entry's error message, if any.
func (e Entry) ErrorText() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}
