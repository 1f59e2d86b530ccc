// Package middleware provides request filters and security checks for the application.
// file: middleware/session.go
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"climb-calendar/auth"
	"climb-calendar/logger"
)

// cookie session keys
const (
	SessionKeyID    = "sid"
	SessionKeyToken = "idToken"
)

// SessionCookieName names the browser cookie holding the session.
const SessionCookieName = "climbsession"

// CookieSessions installs the signed cookie store every other session
// middleware reads from. secure marks the cookie HTTPS-only.
func CookieSessions(secret []byte, secure bool) gin.HandlerFunc {
	store := cookie.NewStore(secret)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(SessionCookieName, store)
}

// Gate is the part of the identity gate the middleware needs.
type Gate interface {
	Touch(sid string) auth.Session
	SignInWithCredential(ctx context.Context, sid, idToken string) (auth.Session, error)
	Observe(sid string) auth.Session
	IsAuthenticated(ctx context.Context) bool
	IsAdmin(ctx context.Context) bool
}

// SessionContext gives every browser a session id, kept in the cookie
// session, and puts it on the request context. A session the gate has not
// seen yet (after a restart, say) is restored from the id token saved at
// sign-in.
func SessionContext(gate Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		sid, _ := session.Get(SessionKeyID).(string)
		if sid == "" {
			sid = uuid.NewString()
			session.Set(SessionKeyID, sid)
			if err := session.Save(); err != nil {
				logger.Error.Printf("[SessionContext] could not save session: %v", err)
			}
			logger.Debug.Printf("[SessionContext] new session %s", sid)
		}

		ctx := auth.WithSessionID(c.Request.Context(), sid)
		c.Request = c.Request.WithContext(ctx)
		c.Set(SessionKeyID, sid)

		if !gate.Touch(sid).Known {
			restore(ctx, gate, session, sid)
		}
		c.Next()
	}
}

func restore(ctx context.Context, gate Gate, session sessions.Session, sid string) {
	token, _ := session.Get(SessionKeyToken).(string)
	if token == "" {
		gate.Observe(sid)
		return
	}
	if _, err := gate.SignInWithCredential(ctx, sid, token); err != nil {
		logger.Warn.Printf("[SessionContext] dropping saved token of %s: %v", sid, err)
		session.Delete(SessionKeyToken)
		_ = session.Save()
		gate.Observe(sid)
	}
}

// SessionID returns the id SessionContext assigned to the request.
func SessionID(c *gin.Context) string {
	return c.GetString(SessionKeyID)
}
