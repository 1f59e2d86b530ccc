// file: auth/gate.go
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"climb-calendar/logger"
)

// ErrNoSession is returned when the context carries no signed-in session.
var ErrNoSession = errors.New("not signed in")

// User is the signed-in account as seen by the application.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	ElevatedRole bool   `json:"elevatedRole"`
}

// Session is the auth state of one browser session. Known is false until
// the provider has reported on the session at least once.
type Session struct {
	Known bool  `json:"isKnown"`
	User  *User `json:"user,omitempty"`
}

// AuthStateListener is told about every change to a session.
type AuthStateListener func(sid string, s Session)

type sessionState struct {
	session  Session
	result   *TokenResult
	lastSeen time.Time
}

// Gate owns the sessions of every browser and notifies listeners whenever one
// of them changes.
type Gate struct {
	provider Provider

	mu       sync.RWMutex
	sessions map[string]*sessionState
	now      func() time.Time

	listenersMu sync.Mutex
	nextID      int
	listeners   map[int]AuthStateListener
}

// NewGate returns a gate backed by provider.
func NewGate(provider Provider) *Gate {
	return &Gate{
		provider:  provider,
		sessions:  make(map[string]*sessionState),
		now:       time.Now,
		listeners: make(map[int]AuthStateListener),
	}
}

// OnAuthStateChanged registers fn and returns a func that removes it.
func (g *Gate) OnAuthStateChanged(fn AuthStateListener) func() {
	g.listenersMu.Lock()
	defer g.listenersMu.Unlock()
	g.nextID++
	id := g.nextID
	g.listeners[id] = fn
	return func() {
		g.listenersMu.Lock()
		defer g.listenersMu.Unlock()
		delete(g.listeners, id)
	}
}

func (g *Gate) notify(sid string, s Session) {
	g.listenersMu.Lock()
	fns := make([]AuthStateListener, 0, len(g.listeners))
	for _, fn := range g.listeners {
		fns = append(fns, fn)
	}
	g.listenersMu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error.Printf("[Gate.notify] auth listener panicked: %v", r)
				}
			}()
			fn(sid, s)
		}()
	}
}

// SignInWithPopup signs sid in with an email and password.
func (g *Gate) SignInWithPopup(ctx context.Context, sid string, cred PasswordCredential) (Session, error) {
	token, err := g.provider.SignInWithPassword(ctx, cred.Email, cred.Password)
	if err != nil {
		return g.Session(sid), err
	}
	return g.SignInWithCredential(ctx, sid, token)
}

// SignInWithCredential signs sid in with an id token issued earlier.
func (g *Gate) SignInWithCredential(ctx context.Context, sid, idToken string) (Session, error) {
	res, err := g.provider.VerifyIDToken(ctx, idToken)
	if err != nil {
		logger.Warn.Printf("[Gate.SignInWithCredential] rejected token for session %s: %v", sid, err)
		return g.Session(sid), err
	}
	return g.set(sid, res), nil
}

// Refresh re-issues the session's token so it carries the account's current claims.
func (g *Gate) Refresh(ctx context.Context, sid string) (Session, error) {
	g.mu.RLock()
	st, ok := g.sessions[sid]
	g.mu.RUnlock()
	if !ok || st.result == nil {
		return g.Session(sid), ErrNoSession
	}

	token, err := g.provider.Refresh(ctx, st.result.Token)
	if err != nil {
		return g.Session(sid), err
	}
	return g.SignInWithCredential(ctx, sid, token)
}

// SignOut clears the session's user. The session stays known.
func (g *Gate) SignOut(sid string) Session {
	return g.set(sid, nil)
}

// Observe marks sid as known without signing anyone in. It is a no-op for
// sessions the gate already knows. Listeners are not told: an anonymous
// session becoming known changes nobody's access.
func (g *Gate) Observe(sid string) Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.sessions[sid]; ok {
		return st.session
	}
	s := Session{Known: true}
	g.sessions[sid] = &sessionState{session: s, lastSeen: g.now()}
	return s
}

// Touch returns sid's state and records it as active.
func (g *Gate) Touch(sid string) Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.sessions[sid]
	if !ok {
		return Session{}
	}
	st.lastSeen = g.now()
	return st.session
}

// Prune forgets sessions not touched for idle and returns how many went.
// A pruned browser that still holds its id token is restored on its next
// request, so listeners are not told.
func (g *Gate) Prune(idle time.Duration) int {
	cutoff := g.now().Add(-idle)
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for sid, st := range g.sessions {
		if st.lastSeen.Before(cutoff) {
			delete(g.sessions, sid)
			n++
		}
	}
	if n > 0 {
		logger.Debug.Printf("[Gate.Prune] forgot %d idle sessions, %d left", n, len(g.sessions))
	}
	return n
}

// Sessions returns the number of sessions the gate holds.
func (g *Gate) Sessions() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

func (g *Gate) set(sid string, res *TokenResult) Session {
	s := Session{Known: true}
	if res != nil {
		s.User = &User{ID: res.UserID, Email: res.Email, ElevatedRole: res.Role() == RoleAdmin}
	}

	g.mu.Lock()
	g.sessions[sid] = &sessionState{session: s, result: res, lastSeen: g.now()}
	g.mu.Unlock()

	logger.Debug.Printf("[Gate.set] session %s signedIn=%v", sid, s.User != nil)
	g.notify(sid, s)
	return s
}

// Session returns sid's current state.
func (g *Gate) Session(sid string) Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if st, ok := g.sessions[sid]; ok {
		return st.session
	}
	return Session{}
}

// IDTokenResult returns the verified token of the session in ctx.
func (g *Gate) IDTokenResult(ctx context.Context) (*TokenResult, error) {
	sid := SessionID(ctx)
	g.mu.RLock()
	defer g.mu.RUnlock()
	st, ok := g.sessions[sid]
	if !ok || st.result == nil {
		return nil, ErrNoSession
	}
	return st.result, nil
}

// CurrentUser returns the signed-in user of the session in ctx, or nil.
func (g *Gate) CurrentUser(ctx context.Context) *User {
	return g.Session(SessionID(ctx)).User
}

// IsAuthenticated reports whether the session in ctx is signed in.
func (g *Gate) IsAuthenticated(ctx context.Context) bool {
	return g.CurrentUser(ctx) != nil
}

// IsAdmin reports whether the session in ctx holds the admin role claim.
func (g *Gate) IsAdmin(ctx context.Context) bool {
	res, err := g.IDTokenResult(ctx)
	if err != nil {
		return false
	}
	return res.Role() == RoleAdmin
}

// PasswordCredential is what the sign-in popup collects.
type PasswordCredential struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}
