// file: services/admins.go
package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"climb-calendar/auth"
	"climb-calendar/logger"
	"climb-calendar/store"
)

// Accounts is the provider side of granting roles.
type Accounts interface {
	UserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
	SetCustomClaims(ctx context.Context, uid string, claims map[string]any) error
}

// AdminBootstrap grants the admin role to the accounts whose emails are the
// document ids of the admins collection.
type AdminBootstrap struct {
	store      store.RemoteStore
	accounts   Accounts
	collection string
}

func NewAdminBootstrap(s store.RemoteStore, accounts Accounts, collection string) *AdminBootstrap {
	return &AdminBootstrap{store: s, accounts: accounts, collection: collection}
}

func (b *AdminBootstrap) allowList(ctx context.Context) ([]string, error) {
	refs, err := b.store.ListDocuments(ctx, b.collection)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	emails := make([]string, 0, len(refs))
	for _, r := range refs {
		emails = append(emails, r.ID)
	}
	return emails, nil
}

// MakeAdmins grants the role to every listed account that lacks it and
// returns how many were granted. Listed emails without an account are skipped.
func (b *AdminBootstrap) MakeAdmins(ctx context.Context) (int, error) {
	emails, err := b.allowList(ctx)
	if err != nil {
		return 0, err
	}
	logger.Info.Printf("[MakeAdmins] admins: %v", emails)

	granted := 0
	for _, email := range emails {
		rec, err := b.accounts.UserByEmail(ctx, email)
		if err != nil {
			if !errors.Is(err, auth.ErrUnknownUser) {
				logger.Warn.Printf("[MakeAdmins] lookup of %s failed: %v", email, err)
			}
			continue
		}
		if role, _ := rec.CustomClaims["role"].(string); role == auth.RoleAdmin {
			continue
		}

		claims := make(map[string]any, len(rec.CustomClaims)+1)
		for k, v := range rec.CustomClaims {
			claims[k] = v
		}
		claims["role"] = auth.RoleAdmin
		if err := b.accounts.SetCustomClaims(ctx, rec.UID, claims); err != nil {
			return granted, fmt.Errorf("grant admin to %s: %w", email, err)
		}
		logger.Info.Printf("[MakeAdmins] set ADMIN role to %s", rec.UID)
		granted++
	}
	return granted, nil
}

// OnUserCreated grants the role to a newly created, verified account on
// the allow-list.
func (b *AdminBootstrap) OnUserCreated(ctx context.Context, rec auth.UserRecord) {
	logger.Info.Printf("[OnUserCreated] %s (%s), verified: %v", rec.Email, rec.UID, rec.EmailVerified)
	if !rec.EmailVerified || rec.Email == "" {
		return
	}

	emails, err := b.allowList(ctx)
	if err != nil {
		logger.Error.Printf("[OnUserCreated] %v", err)
		return
	}
	if !slices.Contains(emails, rec.Email) {
		return
	}

	if err := b.accounts.SetCustomClaims(ctx, rec.UID, map[string]any{"role": auth.RoleAdmin}); err != nil {
		logger.Error.Printf("[OnUserCreated] grant admin to %s: %v", rec.UID, err)
		return
	}
	logger.Info.Printf("[OnUserCreated] set ADMIN role to %s", rec.UID)
}
