// Package websocket pushes live cache updates and mutation results to
// browsers over WebSocket connections.
// file: websocket/connection.go
package websocket

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"climb-calendar/auth"
	"climb-calendar/cache"
	"climb-calendar/logger"
	"climb-calendar/services"
)

// WSConn is an interface for the WebSocket connection.
type WSConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	ReadMessage() (int, []byte, error)
	Close() error
	RemoteAddr() net.Addr
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
}

// Configuration constants.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 2048
	sendBuffer     = 64
)

// Connection represents a single WebSocket connection for one browser tab.
// Every connection is a distinct cache consumer identified by token.
type Connection struct {
	hub   *Hub
	conn  WSConn
	token string
	sid   string
	ctx   context.Context

	sendMu sync.Mutex
	send   chan []byte
	closed bool

	subsMu sync.Mutex
	subs   map[string]*subscription
}

// subscription forwards one cache key to the client. Snapshots leave in
// version order: the initial read and the change callback race, so anything
// not newer than what was already sent is dropped.
type subscription struct {
	key  cache.Key
	stop func()

	mu      sync.Mutex
	sent    bool
	version uint64
}

func (s *subscription) forward(c *Connection, resource string, e cache.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent && e.Version <= s.version {
		return
	}
	s.sent = true
	s.version = e.Version
	c.push(newSnapshot(resource, e))
}

func newConnection(h *Hub, conn WSConn, sid string) *Connection {
	return &Connection{
		hub:   h,
		conn:  conn,
		token: uuid.NewString(),
		sid:   sid,
		ctx:   auth.WithSessionID(context.Background(), sid),
		send:  make(chan []byte, sendBuffer),
		subs:  make(map[string]*subscription),
	}
}

// ------------------- pumps -------------------

// readPump handles inbound messages from the client.
func (c *Connection) readPump() {
	defer func() {
		c.release()
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn.Printf("[readPump] Read error from %v: %v", c.conn.RemoteAddr(), err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			logger.Debug.Printf("[readPump] Ignoring non-text messageType=%d", messageType)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warn.Printf("[readPump] Invalid JSON from %v: %v", c.conn.RemoteAddr(), err)
			continue
		}
		c.handleIncoming(msg)
	}
}

// writePump handles outbound messages to the client, including periodic pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				logger.Debug.Printf("[writePump] Send channel closed for %v", c.conn.RemoteAddr())
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn.Printf("[writePump] Error writing to %v: %v", c.conn.RemoteAddr(), err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warn.Printf("[writePump] Ping error for %v: %v", c.conn.RemoteAddr(), err)
				return
			}
		}
	}
}

// ------------------- messages -------------------

// handleIncoming processes an inbound JSON message.
func (c *Connection) handleIncoming(msg ClientMessage) {
	logger.Debug.Printf("[handleIncoming] Action=%s, Resource=%s, token=%s", msg.Action, msg.Resource, c.token)
	switch msg.Action {
	case ActionSubscribe:
		c.subscribe(msg.Resource)
	case ActionUnsubscribe:
		c.unsubscribe(msg.Resource)
	default:
		logger.Debug.Printf("[handleIncoming] Unhandled action: %s", msg.Action)
	}
}

// subscribe mounts resource for this connection and forwards every change of
// its entry, starting with the current one.
func (c *Connection) subscribe(resource string) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.subscribeLocked(resource)
}

func (c *Connection) subscribeLocked(resource string) {
	if _, ok := c.subs[resource]; ok {
		return
	}
	key, release, err := c.hub.mount(c.ctx, resource, c.token)
	if err != nil {
		logger.Warn.Printf("[subscribe] %s for %s failed: %v", resource, c.token, err)
		c.push(ErrorMessage{Action: ActionError, Resource: resource, Error: err.Error()})
		return
	}

	sub := &subscription{key: key}
	stop := c.hub.cache.Subscribe(key, func(e cache.Entry) {
		sub.forward(c, resource, e)
	})
	sub.stop = func() {
		stop()
		release()
	}
	c.subs[resource] = sub
	sub.forward(c, resource, c.hub.cache.Read(key))
}

func (c *Connection) unsubscribe(resource string) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.unsubscribeLocked(resource)
}

func (c *Connection) unsubscribeLocked(resource string) {
	if sub, ok := c.subs[resource]; ok {
		sub.stop()
		delete(c.subs, resource)
	}
}

// release drops every subscription the connection holds.
func (c *Connection) release() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for resource := range c.subs {
		c.unsubscribeLocked(resource)
	}
}

// sessionChanged moves the personal events subscription to the session's
// new user. A signed-out session loses it and is told so.
func (c *Connection) sessionChanged(s auth.Session) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	sub, ok := c.subs[ResourceUserEvents]
	if !ok {
		return
	}
	if s.User != nil && sub.key == services.UserEventsKey(s.User.Email) {
		return
	}

	c.unsubscribeLocked(ResourceUserEvents)
	if s.User == nil {
		logger.Debug.Printf("[sessionChanged] %s signed out, dropped personal events", c.token)
		c.push(ErrorMessage{Action: ActionError, Resource: ResourceUserEvents, Error: auth.ErrNoSession.Error()})
		return
	}
	c.subscribeLocked(ResourceUserEvents)
}

// push queues v for the client without blocking; a full buffer drops it.
func (c *Connection) push(v any) {
	out, err := json.Marshal(v)
	if err != nil {
		logger.Error.Printf("[push] Error marshalling message: %v", err)
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- out:
	default:
		logger.Warn.Printf("[push] Dropping message for connection %v", c.conn.RemoteAddr())
	}
}

// closeSend stops the write pump once.
func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
