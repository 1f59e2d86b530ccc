// file: services/preferences.go
package services

import (
	"fmt"
	"slices"

	"climb-calendar/cache"
)

// ViewMode is how the competition list is presented.
type ViewMode string

const (
	ViewCalendar ViewMode = "calendar"
	ViewTable    ViewMode = "table"
	ViewList     ViewMode = "list"
)

// ViewModes lists the modes; the first is the default.
var ViewModes = []ViewMode{ViewCalendar, ViewTable, ViewList}

// ViewModeKey holds one browser session's view mode.
func ViewModeKey(sid string) cache.Key {
	return cache.Key{Resource: "ui/view", Scope: sid}
}

// Preferences keeps per-session presentation choices in the cache.
type Preferences struct {
	cache *cache.Cache
}

func NewPreferences(c *cache.Cache) *Preferences {
	return &Preferences{cache: c}
}

// ViewMode returns the session's mode, defaulting to the first mode.
func (p *Preferences) ViewMode(sid string) ViewMode {
	key := ViewModeKey(sid)
	p.cache.RegisterDefault(key, ViewModes[0])
	mode, _, ok := cache.Get[ViewMode](p.cache, key)
	if !ok {
		return ViewModes[0]
	}
	return mode
}

// SetViewMode stores mode for the session.
func (p *Preferences) SetViewMode(sid string, mode ViewMode) error {
	if !slices.Contains(ViewModes, mode) {
		return fmt.Errorf("unknown view mode %q", mode)
	}
	p.cache.Write(ViewModeKey(sid), mode)
	return nil
}
