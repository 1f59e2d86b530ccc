// file: store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"climb-calendar/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (collection, id)
)`

// SQLiteStore persists documents in a single sqlite table. Pushes are fanned
// out in process, so only writers sharing the store observe each other.
type SQLiteStore struct {
	db  *sql.DB
	hub *hub
	now func() time.Time
}

var _ RemoteStore = (*SQLiteStore)(nil)

// OpenSQLite opens (and if needed creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	s.hub = newHub(s.GetDocs)
	logger.Info.Printf("[OpenSQLite] opened %s", path)
	return s, nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, collection string) ([]DocRef, error) {
	query, args, err := sq.Select("id").From("documents").
		Where(sq.Eq{"collection": collection}).OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var refs []DocRef
	for rows.Next() {
		ref := DocRef{Collection: collection}
		if err := rows.Scan(&ref.ID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (s *SQLiteStore) GetDocs(ctx context.Context, q Query) ([]Document, error) {
	query, args, err := sq.Select("id", "data", "updated_at").From("documents").
		Where(sq.Eq{"collection": q.Collection}).OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			id      string
			raw     string
			updated int64
		)
		if err := rows.Scan(&id, &raw, &updated); err != nil {
			return nil, err
		}
		data, err := Decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", q.Collection, id, err)
		}
		docs = append(docs, Document{ID: id, Data: data, UpdateTime: time.Unix(0, updated).UTC()})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return q.apply(docs), nil
}

func (s *SQLiteStore) AddDoc(ctx context.Context, collection string, data Data) (DocRef, error) {
	raw, err := Encode(data)
	if err != nil {
		return DocRef{}, err
	}
	ref := DocRef{Collection: collection, ID: NewID()}

	query, args, err := sq.Insert("documents").
		Columns("collection", "id", "data", "updated_at").
		Values(collection, ref.ID, string(raw), s.now().UnixNano()).ToSql()
	if err != nil {
		return DocRef{}, err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return DocRef{}, fmt.Errorf("add to %s: %w", collection, err)
	}

	s.hub.publish(ctx, collection)
	return ref, nil
}

func (s *SQLiteStore) UpdateDoc(ctx context.Context, collection, id string, data Data) error {
	raw, err := Encode(data)
	if err != nil {
		return err
	}

	query, args, err := sq.Update("documents").
		Set("data", string(raw)).
		Set("updated_at", s.now().UnixNano()).
		Where(sq.Eq{"collection": collection, "id": id}).ToSql()
	if err != nil {
		return err
	}
	if err := s.execOne(ctx, query, args...); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}

	s.hub.publish(ctx, collection)
	return nil
}

func (s *SQLiteStore) DeleteDoc(ctx context.Context, collection, id string) error {
	query, args, err := sq.Delete("documents").
		Where(sq.Eq{"collection": collection, "id": id}).ToSql()
	if err != nil {
		return err
	}
	if err := s.execOne(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}

	s.hub.publish(ctx, collection)
	return nil
}

func (s *SQLiteStore) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) OnSnapshot(ctx context.Context, q Query, fn func(Snapshot)) (Unsubscribe, error) {
	return s.hub.subscribe(ctx, q, fn)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
