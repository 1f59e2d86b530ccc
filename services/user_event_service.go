// file: services/user_event_service.go
package services

import (
	"context"

	"climb-calendar/auth"
	"climb-calendar/cache"
	"climb-calendar/logger"
	"climb-calendar/models"
	"climb-calendar/store"
)

// UserEventsResource names the per-user event keys; the scope is the owner's email.
const UserEventsResource = "userEvents"

// UserEventsKey is the key of email's events.
func UserEventsKey(email string) cache.Key {
	return cache.Key{Resource: UserEventsResource, Scope: email}
}

// UserEventService manages each signed-in user's own events.
type UserEventService struct {
	cache         *cache.Cache
	store         store.RemoteStore
	gate          Gate
	collectionFor func(email string) string
}

// NewUserEventService stores email's events in collectionFor(email).
func NewUserEventService(c *cache.Cache, s store.RemoteStore, gate Gate, collectionFor func(email string) string) *UserEventService {
	return &UserEventService{cache: c, store: s, gate: gate, collectionFor: collectionFor}
}

// owner returns the signed-in user's email and makes sure their key is bound.
func (s *UserEventService) owner(ctx context.Context, action string) (string, error) {
	u := s.gate.CurrentUser(ctx)
	if u == nil {
		return "", &PermissionError{Action: action}
	}
	s.cache.RegisterRemote(UserEventsKey(u.Email), cache.RemoteSource{
		Store: s.store,
		Query: store.Collection(s.collectionFor(u.Email)),
		Parse: parseUserEvents,
	})
	return u.Email, nil
}

// Mount starts (or joins) live updates of the signed-in user's events.
func (s *UserEventService) Mount(ctx context.Context, token string) (cache.Key, error) {
	email, err := s.owner(ctx, "view personal events")
	if err != nil {
		return cache.Key{}, err
	}
	key := UserEventsKey(email)
	return key, s.cache.Mount(ctx, key, token)
}

// Unmount releases token's interest in key.
func (s *UserEventService) Unmount(key cache.Key, token string) {
	s.cache.Unmount(key, token)
}

// Live reports whether a push subscription keeps the signed-in user's
// events current.
func (s *UserEventService) Live(ctx context.Context) bool {
	u := s.gate.CurrentUser(ctx)
	return u != nil && s.cache.Mounted(UserEventsKey(u.Email)) > 0
}

// UserEvents returns the signed-in user's cached events.
func (s *UserEventService) UserEvents(ctx context.Context) ([]models.UserEvent, cache.Entry, error) {
	email, err := s.owner(ctx, "view personal events")
	if err != nil {
		return nil, cache.Entry{}, err
	}
	es, e, _ := cache.Get[[]models.UserEvent](s.cache, UserEventsKey(email))
	return es, e, nil
}

// Refetch reloads the signed-in user's events from the store.
func (s *UserEventService) Refetch(ctx context.Context) (cache.Entry, error) {
	email, err := s.owner(ctx, "view personal events")
	if err != nil {
		return cache.Entry{}, err
	}
	return s.cache.Refetch(ctx, UserEventsKey(email))
}

// Add creates an event for the signed-in user.
func (s *UserEventService) Add(ctx context.Context, e models.UserEventNew) (string, error) {
	if err := models.ValidateUserEvent(e); err != nil {
		return "", err
	}
	var ref store.DocRef
	err := s.mutate(ctx, "Add", "add personal events", func(ctx context.Context, collection string) error {
		var err error
		ref, err = s.store.AddDoc(ctx, collection, userEventData(e))
		return err
	})
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

// Edit replaces one of the signed-in user's events.
func (s *UserEventService) Edit(ctx context.Context, id string, e models.UserEventNew) error {
	if err := models.ValidateUserEvent(e); err != nil {
		return err
	}
	return s.mutate(ctx, "Edit", "edit personal events", func(ctx context.Context, collection string) error {
		return s.store.UpdateDoc(ctx, collection, id, userEventData(e))
	})
}

// Delete removes one of the signed-in user's events.
func (s *UserEventService) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, "Delete", "delete personal events", func(ctx context.Context, collection string) error {
		return s.store.DeleteDoc(ctx, collection, id)
	})
}

// mutate resolves the owner inside Authorize so a missing session is
// reported like any other refused mutation.
func (s *UserEventService) mutate(ctx context.Context, verb, action string, run func(ctx context.Context, collection string) error) error {
	var email string
	key := cache.Key{Resource: UserEventsResource}
	if u := s.gate.CurrentUser(ctx); u != nil {
		key = UserEventsKey(u.Email)
	}
	return s.cache.Mutate(ctx, cache.Mutation{
		Key:    key,
		Origin: auth.SessionID(ctx),
		Action: []string{"UserEvent", verb},
		Authorize: func(ctx context.Context) error {
			var err error
			email, err = s.owner(ctx, action)
			if err != nil {
				logger.Warn.Printf("[UserEventService] refused to %s: not signed in", action)
			}
			return err
		},
		Run: func(ctx context.Context) error {
			return run(ctx, s.collectionFor(email))
		},
	})
}
