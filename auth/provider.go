// Package auth is the identity gate: it signs accounts in against an
// identity provider and derives each browser session's user and role.
// file: auth/provider.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"climb-calendar/logger"
)

// RoleAdmin is the role claim value granting competition edits.
const RoleAdmin = "admin"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid id token")
	ErrUnknownUser        = errors.New("unknown user")
)

// TokenResult is a verified id token and its claims.
type TokenResult struct {
	Token     string         `json:"token"`
	UserID    string         `json:"uid"`
	Email     string         `json:"email"`
	Claims    map[string]any `json:"claims"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// Role returns the role claim, if any.
func (r *TokenResult) Role() string {
	role, _ := r.Claims["role"].(string)
	return role
}

// UserRecord is the provider's view of an account.
type UserRecord struct {
	UID           string         `json:"uid"`
	Email         string         `json:"email"`
	EmailVerified bool           `json:"emailVerified"`
	CustomClaims  map[string]any `json:"customClaims,omitempty"`
}

// Provider issues and verifies id tokens.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (string, error)
	VerifyIDToken(ctx context.Context, idToken string) (*TokenResult, error)
	// Refresh re-issues a still valid token with the account's current claims.
	Refresh(ctx context.Context, idToken string) (string, error)
}

// Account is one entry of the accounts file.
type Account struct {
	UID           string         `json:"uid"`
	Email         string         `json:"email"`
	PasswordHash  string         `json:"passwordHash"`
	EmailVerified bool           `json:"emailVerified"`
	Claims        map[string]any `json:"claims,omitempty"`
}

type accountsFile struct {
	Accounts []Account `json:"accounts"`
}

// LoadAccounts reads the accounts file at path.
func LoadAccounts(path string) ([]Account, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, err
	}
	var f accountsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f.Accounts, nil
}

// SaveAccounts writes accounts to path in the format LoadAccounts reads.
func SaveAccounts(path string, accounts []Account) error {
	data, err := json.MarshalIndent(accountsFile{Accounts: accounts}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}

type tokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// LocalProvider authenticates against a fixed set of accounts with bcrypt
// password hashes and issues HS256 id tokens.
type LocalProvider struct {
	mu        sync.RWMutex
	accounts  map[string]*Account
	signedIn  map[string]bool
	onCreated map[int]func(context.Context, UserRecord)
	nextHook  int

	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider indexes accounts by email.
func NewLocalProvider(secret []byte, accounts []Account) *LocalProvider {
	p := &LocalProvider{
		accounts:  make(map[string]*Account, len(accounts)),
		signedIn:  make(map[string]bool),
		onCreated: make(map[int]func(context.Context, UserRecord)),
		secret:    secret,
		ttl:       time.Hour,
		now:       time.Now,
	}
	for i := range accounts {
		a := accounts[i]
		if a.UID == "" {
			a.UID = a.Email
		}
		p.accounts[strings.ToLower(a.Email)] = &a
	}
	return p
}

// OnUserCreated registers fn to run the first time an account signs in,
// before its first token is issued. The returned func removes the hook.
func (p *LocalProvider) OnUserCreated(fn func(context.Context, UserRecord)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextHook++
	id := p.nextHook
	p.onCreated[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.onCreated, id)
	}
}

func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (string, error) {
	p.mu.RLock()
	acct, ok := p.accounts[strings.ToLower(email)]
	var hash string
	if ok {
		hash = acct.PasswordHash
	}
	p.mu.RUnlock()

	if !ok || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		logger.Warn.Printf("[LocalProvider.SignInWithPassword] failed sign-in for %s", email)
		return "", ErrInvalidCredentials
	}

	p.mu.Lock()
	first := !p.signedIn[acct.UID]
	p.signedIn[acct.UID] = true
	hooks := make([]func(context.Context, UserRecord), 0, len(p.onCreated))
	for _, fn := range p.onCreated {
		hooks = append(hooks, fn)
	}
	p.mu.Unlock()

	if first {
		logger.Info.Printf("[LocalProvider.SignInWithPassword] first sign-in of %s", acct.Email)
		rec, err := p.UserByEmail(ctx, acct.Email)
		if err != nil {
			return "", err
		}
		for _, fn := range hooks {
			fn(ctx, *rec)
		}
	}

	return p.issue(acct.Email)
}

func (p *LocalProvider) issue(email string) (string, error) {
	p.mu.RLock()
	acct, ok := p.accounts[strings.ToLower(email)]
	if !ok {
		p.mu.RUnlock()
		return "", ErrUnknownUser
	}
	role, _ := acct.Claims["role"].(string)
	c := tokenClaims{
		Email: acct.Email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acct.UID,
			IssuedAt:  jwt.NewNumericDate(p.now()),
			ExpiresAt: jwt.NewNumericDate(p.now().Add(p.ttl)),
		},
	}
	p.mu.RUnlock()

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.secret)
}

func (p *LocalProvider) VerifyIDToken(_ context.Context, idToken string) (*TokenResult, error) {
	c := &tokenClaims{}
	token, err := jwt.ParseWithClaims(idToken, c, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := map[string]any{"email": c.Email}
	if c.Role != "" {
		claims["role"] = c.Role
	}
	res := &TokenResult{Token: idToken, UserID: c.Subject, Email: c.Email, Claims: claims}
	if c.ExpiresAt != nil {
		res.ExpiresAt = c.ExpiresAt.Time
	}
	return res, nil
}

func (p *LocalProvider) Refresh(ctx context.Context, idToken string) (string, error) {
	res, err := p.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", err
	}
	return p.issue(res.Email)
}

// UserByEmail looks an account up by email.
func (p *LocalProvider) UserByEmail(_ context.Context, email string) (*UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	acct, ok := p.accounts[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, email)
	}
	rec := &UserRecord{
		UID:           acct.UID,
		Email:         acct.Email,
		EmailVerified: acct.EmailVerified,
		CustomClaims:  make(map[string]any, len(acct.Claims)),
	}
	for k, v := range acct.Claims {
		rec.CustomClaims[k] = v
	}
	return rec, nil
}

// SetCustomClaims replaces an account's custom claims. Tokens already issued
// keep their claims until refreshed.
func (p *LocalProvider) SetCustomClaims(_ context.Context, uid string, claims map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, acct := range p.accounts {
		if acct.UID == uid {
			acct.Claims = make(map[string]any, len(claims))
			for k, v := range claims {
				acct.Claims[k] = v
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownUser, uid)
}

// Accounts returns a copy of every account, ordered by email.
func (p *LocalProvider) Accounts() []Account {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Account, 0, len(p.accounts))
	for _, acct := range p.accounts {
		a := *acct
		a.Claims = make(map[string]any, len(acct.Claims))
		for k, v := range acct.Claims {
			a.Claims[k] = v
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}
