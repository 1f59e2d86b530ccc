// file: store/hub.go
package store

import (
	"context"
	"sync"

	"climb-calendar/logger"
)

type listener struct {
	query Query
	fn    func(Snapshot)
}

type loadFunc func(ctx context.Context, q Query) ([]Document, error)

// hub fans snapshots out to the listeners of a collection. deliverMu is held
// while a snapshot is read and delivered so listeners observe commits in order.
type hub struct {
	mu        sync.Mutex
	deliverMu sync.Mutex
	nextID    uint64
	listeners map[string]map[uint64]listener
	load      loadFunc
}

func newHub(load loadFunc) *hub {
	return &hub{listeners: make(map[string]map[uint64]listener), load: load}
}

func (h *hub) subscribe(ctx context.Context, q Query, fn func(Snapshot)) (Unsubscribe, error) {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()

	docs, err := h.load(ctx, q)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.listeners[q.Collection] == nil {
		h.listeners[q.Collection] = make(map[uint64]listener)
	}
	h.listeners[q.Collection][id] = listener{query: q, fn: fn}
	h.mu.Unlock()

	logger.Debug.Printf("[hub.subscribe] listener %d on %q", id, q.Collection)
	deliver(fn, Snapshot{Docs: docs})

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners[q.Collection], id)
			if len(h.listeners[q.Collection]) == 0 {
				delete(h.listeners, q.Collection)
			}
			h.mu.Unlock()
			logger.Debug.Printf("[hub.unsubscribe] listener %d on %q", id, q.Collection)
		})
	}, nil
}

// publish re-reads the collection for each of its listeners and pushes the result.
func (h *hub) publish(ctx context.Context, collection string) {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()

	h.mu.Lock()
	ls := make([]listener, 0, len(h.listeners[collection]))
	for _, l := range h.listeners[collection] {
		ls = append(ls, l)
	}
	h.mu.Unlock()

	for _, l := range ls {
		docs, err := h.load(ctx, l.query)
		if err != nil {
			logger.Warn.Printf("[hub.publish] reload of %q failed: %v", collection, err)
			deliver(l.fn, Snapshot{Err: err})
			continue
		}
		deliver(l.fn, Snapshot{Docs: docs})
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, ls := range h.listeners {
		n += len(ls)
	}
	return n
}

func deliver(fn func(Snapshot), s Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error.Printf("[hub.deliver] listener panicked: %v", r)
		}
	}()
	fn(s)
}

// collections lists every collection that currently has a listener.
func (h *hub) collections() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.listeners))
	for c := range h.listeners {
		out = append(out, c)
	}
	return out
}
