// file: controllers/test_helpers_test.go
//go:build unit
// +build unit

package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"climb-calendar/auth"
	"climb-calendar/cache"
	"climb-calendar/i18n"
	"climb-calendar/middleware"
	"climb-calendar/services"
	"climb-calendar/store"
	"climb-calendar/websocket"
)

type testApp struct {
	router   *gin.Engine
	store    *store.MemoryStore
	provider *auth.LocalProvider
	gate     *auth.Gate
}

// hashPassword hashes the given password using bcrypt.
func hashPassword(password string) string {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic("failed to hash password: " + err.Error())
	}
	return string(hashed)
}

// setupTestApp wires the full API against an in-memory store, with one
// admin and one ordinary account, both with password "pw". Today is
// 2024-04-10.
func setupTestApp(t *testing.T) testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := store.NewMemoryStore()
	p := auth.NewLocalProvider([]byte("test-secret"), []auth.Account{
		{UID: "u1", Email: "admin@example.com", PasswordHash: hashPassword("pw"), EmailVerified: true, Claims: map[string]any{"role": auth.RoleAdmin}},
		{UID: "u2", Email: "climber@example.com", PasswordHash: hashPassword("pw"), EmailVerified: true},
		{UID: "u3", Email: "newadmin@example.com", PasswordHash: hashPassword("pw"), EmailVerified: true},
	})
	gate := auth.NewGate(p)
	tr, err := i18n.New()
	require.NoError(t, err)

	hub := websocket.NewHub("http://localhost:8080")
	c := cache.New(cache.WithNotifier(cache.Notifiers{cache.LogNotifier{}, hub}))
	comps := services.NewCompetitionService(c, s, gate, "competitions")
	events := services.NewUserEventService(c, s, gate, func(email string) string { return "userEvents/" + email + "/events" })
	hub.Attach(c, comps, events)

	cal := NewCalendarController(comps, events, tr, "http://localhost:8080")
	cal.now = func() time.Time { return time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC) }

	rt := &Router{
		Gate:         gate,
		Hub:          hub,
		Auth:         NewAuthController(gate, tr),
		Competitions: NewCompetitionController(comps, tr),
		UserEvents:   NewUserEventController(events, tr),
		Calendar:     cal,
		Preferences:  NewPreferencesController(services.NewPreferences(c)),
		Admin:        NewAdminController(services.NewAdminBootstrap(s, p, "admins"), c),
		Health:       NewHealthController(c, hub, "ws://localhost:8080/updates"),
	}

	router := gin.New()
	router.Use(middleware.CookieSessions([]byte("test-secret"), false))
	rt.Register(router)
	return testApp{router: router, store: s, provider: p, gate: gate}
}

// request serves one request. A non-nil body is sent as JSON.
func (a testApp) request(method, path string, body any, jar []*http.Cookie, header ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	for _, ck := range jar {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// login signs a new browser session in and returns its cookies.
func (a testApp) login(t *testing.T, email string) []*http.Cookie {
	t.Helper()
	w := a.request(http.MethodPost, "/api/auth/login", gin.H{"email": email, "password": "pw"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return lastCookies(w)
}

// lastCookies keeps the last cookie of each name; a request that saves the
// session twice sets it twice.
func lastCookies(w *httptest.ResponseRecorder) []*http.Cookie {
	byName := map[string]*http.Cookie{}
	var order []string
	for _, ck := range w.Result().Cookies() {
		if _, ok := byName[ck.Name]; !ok {
			order = append(order, ck.Name)
		}
		byName[ck.Name] = ck
	}
	out := make([]*http.Cookie, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func competitionBody(name string) gin.H {
	return gin.H{
		"name":         name,
		"date":         "2024-04-01T12:00:00Z",
		"dateDuration": 3,
		"type":         []string{"Boulder"},
		"category":     []string{"U12", "U14"},
	}
}

func count(t *testing.T, s *store.MemoryStore, collection string) int {
	t.Helper()
	refs, err := s.ListDocuments(context.Background(), collection)
	require.NoError(t, err)
	return len(refs)
}
