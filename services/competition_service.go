// Package services holds the calendar's use cases: reading competitions and
// personal events through the resource cache and mutating them in the store
// after validation and a permission check.
// file: services/competition_service.go
package services

import (
	"context"

	"climb-calendar/auth"
	"climb-calendar/cache"
	"climb-calendar/calendar"
	"climb-calendar/logger"
	"climb-calendar/models"
	"climb-calendar/store"
)

// CompetitionsKey holds the full competition list.
var CompetitionsKey = cache.Key{Resource: "competitions"}

// CompetitionService reads and edits the shared competition list.
type CompetitionService struct {
	cache      *cache.Cache
	store      store.RemoteStore
	gate       Gate
	collection string
}

// NewCompetitionService binds the competitions key to collection.
func NewCompetitionService(c *cache.Cache, s store.RemoteStore, gate Gate, collection string) *CompetitionService {
	c.RegisterRemote(CompetitionsKey, cache.RemoteSource{
		Store: s,
		Query: store.Collection(collection),
		Parse: parseCompetitions,
	})
	return &CompetitionService{cache: c, store: s, gate: gate, collection: collection}
}

// Mount starts (or joins) the live subscription on behalf of token.
func (s *CompetitionService) Mount(ctx context.Context, token string) error {
	return s.cache.Mount(ctx, CompetitionsKey, token)
}

// Unmount releases token's interest in live updates.
func (s *CompetitionService) Unmount(token string) {
	s.cache.Unmount(CompetitionsKey, token)
}

// Live reports whether a push subscription keeps the cached list current.
func (s *CompetitionService) Live() bool {
	return s.cache.Mounted(CompetitionsKey) > 0
}

// Competitions returns the cached list and its entry. The list is nil until
// the first load.
func (s *CompetitionService) Competitions() ([]models.Competition, cache.Entry) {
	cs, e, _ := cache.Get[[]models.Competition](s.cache, CompetitionsKey)
	return cs, e
}

// Filtered applies f to the cached list.
func (s *CompetitionService) Filtered(f calendar.Filter) ([]models.Competition, cache.Entry) {
	cs, e := s.Competitions()
	return calendar.Apply(cs, f), e
}

// Refetch reloads the list from the store.
func (s *CompetitionService) Refetch(ctx context.Context) (cache.Entry, error) {
	return s.cache.Refetch(ctx, CompetitionsKey)
}

// Add validates c and creates it. The new competition appears in the cache
// with the store's next push.
func (s *CompetitionService) Add(ctx context.Context, c models.CompetitionNew) (string, error) {
	if err := models.ValidateCompetition(c); err != nil {
		return "", err
	}
	var ref store.DocRef
	err := s.cache.Mutate(ctx, cache.Mutation{
		Key:       CompetitionsKey,
		Origin:    auth.SessionID(ctx),
		Action:    []string{"Competition", "Add"},
		Authorize: s.requireAdmin("add competitions"),
		Run: func(ctx context.Context) error {
			var err error
			ref, err = s.store.AddDoc(ctx, s.collection, competitionData(c))
			return err
		},
	})
	if err != nil {
		return "", err
	}
	logger.Info.Printf("[CompetitionService.Add] created %s (%q)", ref.ID, c.Name)
	return ref.ID, nil
}

// Edit replaces competition id with c.
func (s *CompetitionService) Edit(ctx context.Context, id string, c models.CompetitionNew) error {
	if err := models.ValidateCompetition(c); err != nil {
		return err
	}
	return s.cache.Mutate(ctx, cache.Mutation{
		Key:       CompetitionsKey,
		Origin:    auth.SessionID(ctx),
		Action:    []string{"Competition", "Edit"},
		Authorize: s.requireAdmin("edit competitions"),
		Run: func(ctx context.Context) error {
			return s.store.UpdateDoc(ctx, s.collection, id, competitionData(c))
		},
	})
}

// Delete removes competition id.
func (s *CompetitionService) Delete(ctx context.Context, id string) error {
	return s.cache.Mutate(ctx, cache.Mutation{
		Key:       CompetitionsKey,
		Origin:    auth.SessionID(ctx),
		Action:    []string{"Competition", "Delete"},
		Authorize: s.requireAdmin("delete competitions"),
		Run: func(ctx context.Context) error {
			return s.store.DeleteDoc(ctx, s.collection, id)
		},
	})
}

// Pending reports competition mutations in flight.
func (s *CompetitionService) Pending() int {
	return s.cache.Pending(CompetitionsKey)
}

func (s *CompetitionService) requireAdmin(action string) func(context.Context) error {
	return func(ctx context.Context) error {
		if !s.gate.IsAdmin(ctx) {
			logger.Warn.Printf("[CompetitionService] refused to %s: not an admin", action)
			return &PermissionError{Action: action}
		}
		return nil
	}
}
