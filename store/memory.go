// file: store/memory.go
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type memDoc struct {
	raw     []byte
	updated time.Time
}

// MemoryStore keeps documents in process. It is the default backend and the
// one used by tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]memDoc
	hub         *hub
	now         func() time.Time
}

var _ RemoteStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		collections: make(map[string]map[string]memDoc),
		now:         time.Now,
	}
	s.hub = newHub(s.GetDocs)
	return s
}

// NewID returns a fresh, time-ordered document id.
func NewID() string {
	return ulid.Make().String()
}

func (s *MemoryStore) ListDocuments(_ context.Context, collection string) ([]DocRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := make([]DocRef, 0, len(s.collections[collection]))
	for id := range s.collections[collection] {
		refs = append(refs, DocRef{Collection: collection, ID: id})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

func (s *MemoryStore) GetDocs(_ context.Context, q Query) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, 0, len(s.collections[q.Collection]))
	for id, d := range s.collections[q.Collection] {
		data, err := Decode(d.raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", q.Collection, id, err)
		}
		docs = append(docs, Document{ID: id, Data: data, UpdateTime: d.updated})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return q.apply(docs), nil
}

func (s *MemoryStore) AddDoc(ctx context.Context, collection string, data Data) (DocRef, error) {
	ref := DocRef{Collection: collection, ID: NewID()}
	if err := s.put(collection, ref.ID, data, false); err != nil {
		return DocRef{}, err
	}
	s.hub.publish(ctx, collection)
	return ref, nil
}

func (s *MemoryStore) UpdateDoc(ctx context.Context, collection, id string, data Data) error {
	if err := s.put(collection, id, data, true); err != nil {
		return err
	}
	s.hub.publish(ctx, collection)
	return nil
}

// SetDoc writes a document under a caller-chosen id, creating it if needed.
func (s *MemoryStore) SetDoc(ctx context.Context, collection, id string, data Data) error {
	if err := s.put(collection, id, data, false); err != nil {
		return err
	}
	s.hub.publish(ctx, collection)
	return nil
}

func (s *MemoryStore) put(collection, id string, data Data, mustExist bool) error {
	raw, err := Encode(data)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	if _, ok := docs[id]; mustExist && !ok {
		return fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	}
	if docs == nil {
		docs = make(map[string]memDoc)
		s.collections[collection] = docs
	}
	docs[id] = memDoc{raw: raw, updated: s.now()}
	return nil
}

func (s *MemoryStore) DeleteDoc(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	if _, ok := s.collections[collection][id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete %s/%s: %w", collection, id, ErrNotFound)
	}
	delete(s.collections[collection], id)
	s.mu.Unlock()

	s.hub.publish(ctx, collection)
	return nil
}

func (s *MemoryStore) OnSnapshot(ctx context.Context, q Query, fn func(Snapshot)) (Unsubscribe, error) {
	return s.hub.subscribe(ctx, q, fn)
}

// Listeners reports the number of open push subscriptions.
func (s *MemoryStore) Listeners() int {
	return s.hub.count()
}

func (s *MemoryStore) Close() error { return nil }
