// file: auth/context.go
package auth

import "context"

type sessionKey struct{}

// WithSessionID returns a context carrying the browser session id.
func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sid)
}

// SessionID returns the browser session id carried by ctx, or "".
func SessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sessionKey{}).(string)
	return sid
}
