//go:build unit
// +build unit

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("COLL_COMPETITIONS", "")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "competitions", cfg.CollCompetitions)
	assert.Equal(t, "userEvents/a@b.c/events", cfg.UserEventsCollection("a@b.c"))
}

func TestLoad_PostgresNeedsURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", DriverPostgres)
	t.Setenv("DATABASE_URL", "")

	_, err := Load("does-not-exist.env")
	assert.Error(t, err)
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "firestore")

	_, err := Load("does-not-exist.env")
	assert.Error(t, err)
}

func TestLoad_BadBool(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("METRICS_ENABLED", "maybe")

	_, err := Load("does-not-exist.env")
	assert.Error(t, err)
}
