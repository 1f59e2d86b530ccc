// file: cache/remote.go
package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	"climb-calendar/logger"
	"climb-calendar/store"
)

// Parser turns a complete document set into the value cached for a key.
type Parser func(docs []store.Document) (any, error)

// RemoteSource binds a key to a store query.
type RemoteSource struct {
	Store store.RemoteStore
	Query store.Query
	Parse Parser
}

type remote struct {
	src    RemoteSource
	tokens map[string]struct{}
	unsub  store.Unsubscribe
	// gen identifies the open subscription; zero while closed
	gen atomic.Uint64
}

// RegisterRemote binds key to src. Registering an already bound key is a no-op.
func (c *Cache) RegisterRemote(key Key, src RemoteSource) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if _, ok := c.remotes[key]; ok {
		return
	}
	c.remotes[key] = &remote{src: src, tokens: make(map[string]struct{})}
}

// Mount records token as a consumer of key. The push subscription is opened
// for the first token and stays open while any token remains; mounting a
// token twice has no further effect.
func (c *Cache) Mount(ctx context.Context, key Key, token string) error {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	r, ok := c.remotes[key]
	if !ok {
		return fmt.Errorf("mount %s: %w", key, ErrUnregistered)
	}
	if _, dup := r.tokens[token]; dup {
		return nil
	}
	r.tokens[token] = struct{}{}
	if r.unsub != nil {
		return nil
	}

	c.seqGen++
	gen := c.seqGen
	r.gen.Store(gen)
	unsub, err := r.src.Store.OnSnapshot(ctx, r.src.Query, func(s store.Snapshot) {
		if r.gen.Load() != gen {
			return
		}
		c.applySnapshot(key, r.src.Parse, s)
	})
	if err != nil {
		r.gen.Store(0)
		delete(r.tokens, token)
		c.fail(key, err)
		logger.Warn.Printf("[Cache.Mount] subscribe to %s failed: %v", key, err)
		return fmt.Errorf("subscribe %s: %w", key, err)
	}
	r.unsub = unsub

	logger.Debug.Printf("[Cache.Mount] opened push subscription for %s", key)
	c.metrics.ActiveSubscriptions(c.activeLocked())
	return nil
}

// Unmount removes token from key's consumers and closes the push
// subscription when none remain. The key's value then turns stale, since
// nothing keeps it current. Unknown tokens are ignored.
func (c *Cache) Unmount(key Key, token string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	r, ok := c.remotes[key]
	if !ok {
		return
	}
	if _, ok := r.tokens[token]; !ok {
		return
	}
	delete(r.tokens, token)
	if len(r.tokens) > 0 || r.unsub == nil {
		return
	}

	r.gen.Store(0)
	r.unsub()
	r.unsub = nil

	logger.Debug.Printf("[Cache.Unmount] closed push subscription for %s", key)
	c.metrics.ActiveSubscriptions(c.activeLocked())
	c.Invalidate(key)
}

// applySnapshot replaces the key's value with the parsed snapshot. A snapshot
// is complete, so it supersedes whatever the key held.
func (c *Cache) applySnapshot(key Key, parse Parser, s store.Snapshot) {
	if s.Err != nil {
		logger.Warn.Printf("[Cache.applySnapshot] push for %s failed: %v", key, s.Err)
		c.fail(key, s.Err)
		return
	}
	value, err := parse(s.Docs)
	if err != nil {
		logger.Warn.Printf("[Cache.applySnapshot] could not parse push for %s: %v", key, err)
		c.fail(key, err)
		return
	}
	c.Write(key, value)
}

// Refetch reads key's source once and stores the result, following the
// rules of Fetch.
func (c *Cache) Refetch(ctx context.Context, key Key) (Entry, error) {
	c.subMu.Lock()
	r, ok := c.remotes[key]
	c.subMu.Unlock()
	if !ok {
		return c.Read(key), fmt.Errorf("refetch %s: %w", key, ErrUnregistered)
	}

	return c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		docs, err := r.src.Store.GetDocs(ctx, r.src.Query)
		if err != nil {
			return nil, err
		}
		return r.src.Parse(docs)
	})
}

// Mounted returns the number of tokens consuming key.
func (c *Cache) Mounted(key Key) int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if r, ok := c.remotes[key]; ok {
		return len(r.tokens)
	}
	return 0
}

// ActiveRemotes returns the number of open push subscriptions.
func (c *Cache) ActiveRemotes() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return c.activeLocked()
}

func (c *Cache) activeLocked() int {
	n := 0
	for _, r := range c.remotes {
		if r.unsub != nil {
			n++
		}
	}
	return n
}

// Close drops every push subscription.
func (c *Cache) Close() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for key, r := range c.remotes {
		if r.unsub != nil {
			r.gen.Store(0)
			r.unsub()
			r.unsub = nil
		}
		r.tokens = make(map[string]struct{})
		logger.Debug.Printf("[Cache.Close] released %s", key)
	}
}
