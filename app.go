// app.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/gin-gonic/gin"

	"climb-calendar/auth"
	"climb-calendar/cache"
	"climb-calendar/config"
	"climb-calendar/controllers"
	"climb-calendar/i18n"
	"climb-calendar/logger"
	"climb-calendar/middleware"
	"climb-calendar/services"
	"climb-calendar/store"
	"climb-calendar/websocket"
)

// serverToken keeps the competitions subscription open for the life of the
// process so HTTP reads are served from pushed data.
const serverToken = "server"

// gate sessions idle this long are forgotten; signed-in browsers are
// restored from their cookie on the next request
const (
	sessionIdle = 24 * time.Hour
	pruneEvery  = time.Hour
)

// app is the wired server.
type app struct {
	cfg      config.Config
	store    store.RemoteStore
	provider *auth.LocalProvider
	gate     *auth.Gate
	cache    *cache.Cache
	hub      *websocket.Hub
	comps    *services.CompetitionService
	router   *gin.Engine

	stopRefetch func()
	stopWatch   func()
	stopPrune   context.CancelFunc
}

// openStore connects the configured document store.
func openStore(ctx context.Context, cfg config.Config) (store.RemoteStore, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return store.OpenPostgres(ctx, cfg.DatabaseURL, 30*time.Second)
	case config.DriverSQLite:
		return store.OpenSQLite(ctx, cfg.SQLitePath)
	default:
		logger.Warn.Println("[openStore] using the in-memory store; data is lost on exit")
		return store.NewMemoryStore(), nil
	}
}

// loadProvider builds the identity provider from the accounts file. A
// missing file leaves the provider without accounts.
func loadProvider(cfg config.Config) (*auth.LocalProvider, error) {
	accounts, err := auth.LoadAccounts(cfg.AccountsFile)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn.Printf("[loadProvider] %s not found; nobody can sign in", cfg.AccountsFile)
	} else if err != nil {
		return nil, err
	}
	return auth.NewLocalProvider([]byte(cfg.JWTSecret), accounts), nil
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	s, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	p, err := loadProvider(cfg)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	tr, err := i18n.New()
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	gate := auth.NewGate(p)
	hub := websocket.NewHub(cfg.ApplicationURL)

	opts := []cache.Option{cache.WithNotifier(cache.Notifiers{cache.LogNotifier{}, hub})}
	if cfg.MetricsEnabled {
		m, err := services.NewCloudWatchMetrics()
		if err != nil {
			logger.Warn.Printf("[newApp] CloudWatch metrics disabled: %v", err)
		} else {
			opts = append(opts, cache.WithMetrics(m))
		}
	}
	c := cache.New(opts...)

	comps := services.NewCompetitionService(c, s, gate, cfg.CollCompetitions)
	events := services.NewUserEventService(c, s, gate, cfg.UserEventsCollection)
	admins := services.NewAdminBootstrap(s, p, cfg.CollAdmins)
	p.OnUserCreated(admins.OnUserCreated)
	hub.Attach(c, comps, events)

	if err := comps.Mount(ctx, serverToken); err != nil {
		// reads fall back to fetching until a subscription succeeds
		logger.Warn.Printf("[newApp] competitions subscription failed: %v", err)
	}

	pruneCtx, stopPrune := context.WithCancel(context.Background())
	go pruneSessions(pruneCtx, gate, pruneEvery, sessionIdle)

	a := &app{
		cfg:         cfg,
		store:       s,
		provider:    p,
		gate:        gate,
		cache:       c,
		hub:         hub,
		comps:       comps,
		stopRefetch: services.RefetchOnAuthChange(gate, comps),
		stopWatch:   hub.WatchSessions(gate),
		stopPrune:   stopPrune,
	}

	rt := &controllers.Router{
		Gate:         gate,
		Hub:          hub,
		Auth:         controllers.NewAuthController(gate, tr),
		Competitions: controllers.NewCompetitionController(comps, tr),
		UserEvents:   controllers.NewUserEventController(events, tr),
		Calendar:     controllers.NewCalendarController(comps, events, tr, cfg.ApplicationURL),
		Preferences:  controllers.NewPreferencesController(services.NewPreferences(c)),
		Admin:        controllers.NewAdminController(admins, c),
		Health:       controllers.NewHealthController(c, hub, cfg.WebsocketURL),
	}
	a.router = newRouter(cfg, rt)
	return a, nil
}

func pruneSessions(ctx context.Context, gate *auth.Gate, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			gate.Prune(idle)
		}
	}
}

func newRouter(cfg config.Config, rt *controllers.Router) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Frame-Options", "SAMEORIGIN")
		c.Next()
	})

	// Initialize session store
	router.Use(middleware.CookieSessions([]byte(cfg.SessionSecret), cfg.Env == "production"))

	rt.Register(router)
	return router
}

// Close releases subscriptions, connections and the store.
func (a *app) Close() {
	a.stopPrune()
	a.comps.Unmount(serverToken)
	a.stopRefetch()
	a.stopWatch()
	a.hub.Close()
	a.cache.Close()
	if err := a.store.Close(); err != nil {
		logger.Warn.Printf("[app.Close] closing store: %v", err)
	}
}
