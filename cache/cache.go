// file: cache/cache.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"climb-calendar/logger"
)

// ErrUnregistered is returned for remote operations on a key with no source.
var ErrUnregistered = errors.New("no remote source registered for key")

// Subscriber is called after every change to the key it subscribed to.
// It runs synchronously and must not write to the cache.
type Subscriber func(Entry)

// Cache is the shared resource cache. Create one with New and pass it to
// every consumer.
type Cache struct {
	// notifyMu orders a change and its notifications against other changes
	notifyMu sync.Mutex

	mu       sync.Mutex
	seq      uint64
	entries  map[Key]*Entry
	defaults map[Key]any
	subs     map[Key]map[uint64]Subscriber
	nextSub  uint64
	pending  map[Key]int

	// subMu guards remote subscriptions
	subMu   sync.Mutex
	remotes map[Key]*remote
	seqGen  uint64

	notifier Notifier
	metrics  Metrics
	now      func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithNotifier sets the sink mutation results are reported to.
func WithNotifier(n Notifier) Option {
	return func(c *Cache) { c.notifier = n }
}

// WithMetrics sets the publisher for subscription and mutation metrics.
func WithMetrics(m Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[Key]*Entry),
		defaults: make(map[Key]any),
		subs:     make(map[Key]map[uint64]Subscriber),
		pending:  make(map[Key]int),
		remotes:  make(map[Key]*remote),
		notifier: LogNotifier{},
		metrics:  NopMetrics{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterDefault gives key a value to report until it is first written.
func (c *Cache) RegisterDefault(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaults[key] = value
}

// Read returns the current entry for key without blocking on any fetch.
func (c *Cache) Read(key Key) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readLocked(key)
}

func (c *Cache) readLocked(key Key) Entry {
	if e, ok := c.entries[key]; ok {
		return *e
	}
	if v, ok := c.defaults[key]; ok {
		return Entry{Key: key, Status: StatusLoaded, Value: v}
	}
	return Entry{Key: key, Status: StatusUnknown}
}

// Get reads key and asserts its value to T. ok is false when the entry holds
// no value of that type.
func Get[T any](c *Cache, key Key) (value T, entry Entry, ok bool) {
	entry = c.Read(key)
	value, ok = entry.Value.(T)
	return value, entry, ok
}

// Write replaces key's value and notifies its subscribers before returning.
func (c *Cache) Write(key Key, value any) Entry {
	return c.change(key, func(e *Entry) bool {
		setValue(e, value)
		return true
	})
}

// Invalidate marks a loaded key stale, keeping its value. Other entries are
// left alone.
func (c *Cache) Invalidate(key Key) Entry {
	return c.change(key, func(e *Entry) bool {
		if e.Status != StatusLoaded || e.Stale {
			return false
		}
		e.Stale = true
		return true
	})
}

// fail records a read failure: a loaded entry keeps its value and turns
// stale, an empty one moves to StatusError.
func (c *Cache) fail(key Key, err error) Entry {
	return c.change(key, func(e *Entry) bool {
		setFailed(e, err)
		return true
	})
}

func setValue(e *Entry, value any) {
	e.Status = StatusLoaded
	e.Value = value
	e.Err = nil
	e.Stale = false
}

func setFailed(e *Entry, err error) {
	if e.Status != StatusLoaded {
		e.Status = StatusError
	}
	e.Err = err
	e.Stale = true
}

// change applies fn to key's entry under the lock and, when fn reports a
// change, bumps the version and notifies subscribers after unlocking.
func (c *Cache) change(key Key, fn func(e *Entry) bool) Entry {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		cur := c.readLocked(key)
		e = &cur
	}
	if !fn(e) {
		out := *e
		c.mu.Unlock()
		return out
	}
	c.seq++
	e.Version = c.seq
	e.UpdatedAt = c.now()
	c.entries[key] = e
	out := *e
	subs := make([]Subscriber, 0, len(c.subs[key]))
	for _, s := range c.subs[key] {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		callSubscriber(s, out)
	}
	return out
}

func callSubscriber(s Subscriber, e Entry) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error.Printf("[cache] subscriber of %s panicked: %v", e.Key, r)
		}
	}()
	s(e)
}

// Subscribe registers fn for changes to key and returns a func removing it.
func (c *Cache) Subscribe(key Key, fn Subscriber) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSub++
	id := c.nextSub
	if c.subs[key] == nil {
		c.subs[key] = make(map[uint64]Subscriber)
	}
	c.subs[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs[key], id)
			if len(c.subs[key]) == 0 {
				delete(c.subs, key)
			}
		})
	}
}

// Fetcher loads a fresh value for a key.
type Fetcher func(ctx context.Context) (any, error)

// Fetch runs fetcher and stores its result, unless key changed while the
// fetch was in flight: a push or write that landed in the meantime is newer,
// so the fetched value is dropped and the current entry returned.
// A failed fetch keeps the previous value and marks it stale.
func (c *Cache) Fetch(ctx context.Context, key Key, fetcher Fetcher) (Entry, error) {
	started := c.Read(key).Version

	value, err := fetcher(ctx)

	superseded := false
	apply := func(e *Entry) bool {
		if e.Version != started {
			superseded = true
			return false
		}
		if err != nil {
			setFailed(e, err)
		} else {
			setValue(e, value)
		}
		return true
	}
	entry := c.change(key, apply)

	if superseded {
		logger.Debug.Printf("[Cache.Fetch] result for %s superseded (started at v%d, now v%d)", key, started, entry.Version)
		return entry, nil
	}
	if err != nil {
		logger.Warn.Printf("[Cache.Fetch] fetch of %s failed: %v", key, err)
		return entry, fmt.Errorf("fetch %s: %w", key, err)
	}
	return entry, nil
}

// Keys lists every key that has been written.
func (c *Cache) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}
