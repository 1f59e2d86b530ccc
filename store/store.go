// Package store adapts document databases to the calendar. Every backend
// exposes the same collection/document operations plus a push subscription
// that delivers complete snapshots.
// file: store/store.go
package store

import (
	"context"
	"errors"
	"reflect"
	"time"
)

// ErrNotFound is returned when a document id does not exist in its collection.
var ErrNotFound = errors.New("document not found")

// Data holds application fields. Timestamps are time.Time values.
type Data map[string]any

// DocRef addresses one document.
type DocRef struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// Document is a stored record with its generated id.
type Document struct {
	ID         string    `json:"id"`
	Data       Data      `json:"data"`
	UpdateTime time.Time `json:"updateTime"`
}

// Filter matches documents whose Field equals Value.
type Filter struct {
	Field string
	Value any
}

// Query selects documents of one collection.
type Query struct {
	Collection string
	Filters    []Filter
}

// Collection is a query for every document in path.
func Collection(path string) Query {
	return Query{Collection: path}
}

// Where returns a copy of q narrowed by an equality filter.
func (q Query) Where(field string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Value: value})
	return q
}

func (q Query) matches(d Document) bool {
	for _, f := range q.Filters {
		if !reflect.DeepEqual(d.Data[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func (q Query) apply(docs []Document) []Document {
	if len(q.Filters) == 0 {
		return docs
	}
	out := docs[:0:0]
	for _, d := range docs {
		if q.matches(d) {
			out = append(out, d)
		}
	}
	return out
}

// Snapshot is one push: the full result set of a query, or the error that
// prevented reading it.
type Snapshot struct {
	Docs []Document
	Err  error
}

// Unsubscribe stops a push subscription. Calling it more than once is safe.
type Unsubscribe func()

// RemoteStore is the document database seen by the rest of the application.
type RemoteStore interface {
	ListDocuments(ctx context.Context, collection string) ([]DocRef, error)
	GetDocs(ctx context.Context, q Query) ([]Document, error)
	AddDoc(ctx context.Context, collection string, data Data) (DocRef, error)
	// UpdateDoc replaces the document's fields with data.
	UpdateDoc(ctx context.Context, collection, id string, data Data) error
	DeleteDoc(ctx context.Context, collection, id string) error
	// OnSnapshot delivers the current result of q and then a new complete
	// result after every change to q's collection, in commit order.
	OnSnapshot(ctx context.Context, q Query, fn func(Snapshot)) (Unsubscribe, error)
	Close() error
}
