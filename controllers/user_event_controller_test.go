//go:build unit
// +build unit

package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserEvents_RequireLogin(t *testing.T) {
	app := setupTestApp(t)

	w := app.request(http.MethodGet, "/api/user-events", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserEvents_Lifecycle(t *testing.T) {
	app := setupTestApp(t)
	jar := app.login(t, "climber@example.com")

	w := app.request(http.MethodPost, "/api/user-events", gin.H{
		"name": "Training camp", "date": "2024-07-01T00:00:00Z", "dateDuration": 14, "type": "camp",
	}, jar)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)
	assert.Equal(t, 1, count(t, app.store, "userEvents/climber@example.com/events"))

	w = app.request(http.MethodGet, "/api/user-events", nil, jar)
	require.Equal(t, http.StatusOK, w.Code)
	es := decode(t, w)["userEvents"].([]any)
	require.Len(t, es, 1)
	assert.Equal(t, "Training camp", es[0].(map[string]any)["name"])

	// another user does not see it
	other := app.login(t, "admin@example.com")
	w = app.request(http.MethodGet, "/api/user-events", nil, other)
	assert.Empty(t, decode(t, w)["userEvents"])

	w = app.request(http.MethodPut, "/api/user-events/"+id, gin.H{
		"name": "Training camp", "date": "2024-07-01T00:00:00Z", "dateDuration": 30,
	}, jar)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["fields"], "dateDuration")

	w = app.request(http.MethodDelete, "/api/user-events/"+id, nil, jar)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, count(t, app.store, "userEvents/climber@example.com/events"))
}
