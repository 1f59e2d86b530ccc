// file: cache/mutate.go
package cache

import (
	"context"
	"strings"
	"time"

	"climb-calendar/logger"
)

// Notification is the outcome of one mutation, keyed by its action label
// such as ["Competition", "Add"].
type Notification struct {
	Action []string `json:"action"`
	// Origin is the session that started the mutation, if known.
	Origin string    `json:"-"`
	Err    error     `json:"-"`
	At     time.Time `json:"at"`
}

// Title joins the action label for display.
func (n Notification) Title() string {
	return strings.Join(n.Action, " ")
}

// Success reports whether the mutation went through.
func (n Notification) Success() bool {
	return n.Err == nil
}

// Notifier receives every mutation outcome.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Notifiers fans a notification out to each notifier in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(n Notification) {
	for _, x := range ns {
		x.Notify(n)
	}
}

// LogNotifier writes outcomes to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	if n.Err != nil {
		logger.Warn.Printf("[notify] %s failed: %v", n.Title(), n.Err)
		return
	}
	logger.Info.Printf("[notify] %s succeeded", n.Title())
}

// Mutation is one user-initiated write against the remote store.
type Mutation struct {
	// Key is the entry the write will eventually show up in.
	Key    Key
	Action []string
	Origin string
	// Authorize runs first; an error aborts the mutation before Run.
	Authorize func(ctx context.Context) error
	Run       func(ctx context.Context) error
}

// Mutate performs m. The cache entry is not touched: the change becomes
// visible when the store pushes the next snapshot of m.Key. The outcome,
// including a refused authorization, goes to the notifier. There is no retry.
func (c *Cache) Mutate(ctx context.Context, m Mutation) error {
	if m.Authorize != nil {
		if err := m.Authorize(ctx); err != nil {
			c.notifier.Notify(Notification{Action: m.Action, Origin: m.Origin, Err: err, At: c.now()})
			return err
		}
	}

	c.mu.Lock()
	c.pending[m.Key]++
	c.mu.Unlock()

	start := c.now()
	err := m.Run(ctx)
	elapsed := c.now().Sub(start)

	c.mu.Lock()
	c.pending[m.Key]--
	if c.pending[m.Key] <= 0 {
		delete(c.pending, m.Key)
	}
	c.mu.Unlock()

	c.metrics.MutationLatency(strings.Join(m.Action, ""), elapsed, err)
	c.notifier.Notify(Notification{Action: m.Action, Origin: m.Origin, Err: err, At: c.now()})
	return err
}

// Pending returns the number of mutations in flight for key.
func (c *Cache) Pending(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[key]
}
