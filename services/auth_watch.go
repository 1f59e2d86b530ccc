// file: services/auth_watch.go
package services

import (
	"context"

	"climb-calendar/auth"
	"climb-calendar/logger"
)

// AuthWatcher is the subset of the gate that reports session changes.
type AuthWatcher interface {
	OnAuthStateChanged(fn auth.AuthStateListener) func()
}

// RefetchOnAuthChange reloads competitions whenever any session signs in or
// out, which also recovers an entry left stale by a failed read. Nothing is
// fetched while a subscription is open.
func RefetchOnAuthChange(w AuthWatcher, comps *CompetitionService) func() {
	return w.OnAuthStateChanged(func(sid string, s auth.Session) {
		if comps.Live() {
			// an open subscription already delivers every change
			return
		}
		if _, err := comps.Refetch(context.Background()); err != nil {
			logger.Warn.Printf("[RefetchOnAuthChange] refetch after change of %s failed: %v", sid, err)
		}
	})
}
