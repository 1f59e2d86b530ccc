// Package config loads runtime settings from the environment.
// file: config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"climb-calendar/logger"
)

// store drivers understood by main
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds every setting the server reads at start-up.
type Config struct {
	Port           string
	Env            string
	ApplicationURL string
	WebsocketURL   string
	SessionSecret  string
	JWTSecret      string
	LogDir         string

	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	CollCompetitions string
	CollUserEvents   string
	CollAdmins       string
	AccountsFile     string

	MetricsEnabled bool
	XRayEnabled    bool
}

// Load reads an optional .env file and then the process environment,
// falling back to defaults suitable for local development.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		logger.Debug.Printf("[config.Load] no .env loaded: %v", err)
	}

	cfg := Config{
		Port:             getenv("PORT", "8080"),
		Env:              getenv("APP_ENV", "development"),
		ApplicationURL:   getenv("APPLICATION_URL", "http://localhost:8080"),
		WebsocketURL:     getenv("WEBSOCKET_URL", "ws://localhost:8080/updates"),
		SessionSecret:    getenv("SESSION_SECRET", "secret"),
		JWTSecret:        getenv("JWT_SECRET", "dev-jwt-secret"),
		LogDir:           getenv("LOG_DIR", ""),
		StoreDriver:      getenv("STORE_DRIVER", DriverMemory),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SQLitePath:       getenv("SQLITE_PATH", "calendar.sqlite3"),
		CollCompetitions: getenv("COLL_COMPETITIONS", "competitions"),
		CollUserEvents:   getenv("COLL_USEREVENTS", "userEvents"),
		CollAdmins:       getenv("COLL_ADMINS", "admins"),
		AccountsFile:     getenv("ACCOUNTS_FILE", "./config/accounts.json"),
	}

	var err error
	if cfg.MetricsEnabled, err = getbool("METRICS_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.XRayEnabled, err = getbool("XRAY_ENABLED", false); err != nil {
		return Config{}, err
	}

	switch cfg.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("STORE_DRIVER=postgres requires DATABASE_URL")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.Env == "production" && cfg.SessionSecret == "secret" {
		logger.Warn.Println("[config.Load] SESSION_SECRET is not set in production")
	}

	return cfg, nil
}

// UserEventsCollection returns the per-user partition holding an account's events.
func (c Config) UserEventsCollection(email string) string {
	return c.CollUserEvents + "/" + email + "/events"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
