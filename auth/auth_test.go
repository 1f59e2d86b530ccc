//go:build unit
// +build unit

package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func hash(t *testing.T, pw string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newTestProvider(t *testing.T) *LocalProvider {
	return NewLocalProvider([]byte("test-secret"), []Account{
		{UID: "u1", Email: "admin@example.com", PasswordHash: hash(t, "pw"), EmailVerified: true,
			Claims: map[string]any{"role": RoleAdmin}},
		{UID: "u2", Email: "climber@example.com", PasswordHash: hash(t, "pw"), EmailVerified: true},
	})
}

func TestLocalProvider_SignInAndVerify(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	token, err := p.SignInWithPassword(ctx, "Admin@Example.com", "pw")
	require.NoError(t, err)

	res, err := p.VerifyIDToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", res.UserID)
	assert.Equal(t, RoleAdmin, res.Role())

	_, err = p.SignInWithPassword(ctx, "admin@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = p.VerifyIDToken(ctx, token+"x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLocalProvider_ExpiredToken(t *testing.T) {
	p := newTestProvider(t)
	token, err := p.SignInWithPassword(context.Background(), "climber@example.com", "pw")
	require.NoError(t, err)

	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = p.VerifyIDToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLocalProvider_OnUserCreatedRunsOnceBeforeToken(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()
	calls := 0
	p.OnUserCreated(func(ctx context.Context, rec UserRecord) {
		calls++
		require.NoError(t, p.SetCustomClaims(ctx, rec.UID, map[string]any{"role": RoleAdmin}))
	})

	token, err := p.SignInWithPassword(ctx, "climber@example.com", "pw")
	require.NoError(t, err)
	_, err = p.SignInWithPassword(ctx, "climber@example.com", "pw")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	res, err := p.VerifyIDToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, res.Role(), "claims granted by the hook are in the first token")
}

func TestGate_SessionLifecycle(t *testing.T) {
	g := NewGate(newTestProvider(t))
	ctx := WithSessionID(context.Background(), "sid-1")

	assert.False(t, g.Session("sid-1").Known)

	var seen []Session
	remove := g.OnAuthStateChanged(func(sid string, s Session) { seen = append(seen, s) })
	defer remove()

	s, err := g.SignInWithPopup(ctx, "sid-1", PasswordCredential{Email: "admin@example.com", Password: "pw"})
	require.NoError(t, err)
	require.NotNil(t, s.User)
	assert.True(t, s.User.ElevatedRole)
	assert.True(t, g.IsAdmin(ctx))
	assert.True(t, g.IsAuthenticated(ctx))

	s = g.SignOut("sid-1")
	assert.True(t, s.Known)
	assert.Nil(t, s.User)
	assert.False(t, g.IsAdmin(ctx))
	_, err = g.IDTokenResult(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	assert.Len(t, seen, 2)
}

func TestGate_ObserveIsSilent(t *testing.T) {
	g := NewGate(newTestProvider(t))
	calls := 0
	defer g.OnAuthStateChanged(func(string, Session) { calls++ })()

	for i := 0; i < 3; i++ {
		assert.True(t, g.Observe("anon").Known)
	}
	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, g.Sessions())
}

func TestGate_PruneForgetsIdleSessions(t *testing.T) {
	g := NewGate(newTestProvider(t))
	clock := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return clock }

	g.Observe("old")
	_, err := g.SignInWithPopup(context.Background(), "busy", PasswordCredential{Email: "climber@example.com", Password: "pw"})
	require.NoError(t, err)

	clock = clock.Add(2 * time.Hour)
	assert.True(t, g.Touch("busy").Known)
	assert.False(t, g.Touch("never").Known)

	clock = clock.Add(30 * time.Minute)
	assert.Equal(t, 1, g.Prune(time.Hour))
	assert.False(t, g.Session("old").Known)
	assert.NotNil(t, g.Session("busy").User)
	assert.Equal(t, 1, g.Sessions())
}

func TestGate_NonAdmin(t *testing.T) {
	g := NewGate(newTestProvider(t))
	ctx := WithSessionID(context.Background(), "sid-2")

	_, err := g.SignInWithPopup(ctx, "sid-2", PasswordCredential{Email: "climber@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, g.IsAuthenticated(ctx))
	assert.False(t, g.IsAdmin(ctx))
}

func TestGate_RefreshPicksUpNewClaims(t *testing.T) {
	p := newTestProvider(t)
	g := NewGate(p)
	ctx := WithSessionID(context.Background(), "sid-3")

	_, err := g.SignInWithPopup(ctx, "sid-3", PasswordCredential{Email: "climber@example.com", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, p.SetCustomClaims(ctx, "u2", map[string]any{"role": RoleAdmin}))
	assert.False(t, g.IsAdmin(ctx))

	_, err = g.Refresh(ctx, "sid-3")
	require.NoError(t, err)
	assert.True(t, g.IsAdmin(ctx))
}

func TestLoadAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"accounts":[{"email":"a@b.c","passwordHash":"x"}]}`), 0600))

	accts, err := LoadAccounts(path)
	require.NoError(t, err)
	require.Len(t, accts, 1)
	assert.Equal(t, "a@b.c", accts[0].Email)
}

func TestSaveAccounts_RoundTripsClaims(t *testing.T) {
	p := newTestProvider(t)
	require.NoError(t, p.SetCustomClaims(context.Background(), "u2", map[string]any{"role": RoleAdmin}))

	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, SaveAccounts(path, p.Accounts()))

	accts, err := LoadAccounts(path)
	require.NoError(t, err)
	require.Len(t, accts, 2)
	assert.Equal(t, "climber@example.com", accts[1].Email)
	assert.Equal(t, RoleAdmin, accts[1].Claims["role"])
	assert.NotEmpty(t, accts[1].PasswordHash)
}
