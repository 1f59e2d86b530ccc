// file: store/postgres.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"climb-calendar/logger"
)

// every write notifies this channel with the collection name as payload
const notifyChannel = "documents_changed"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore keeps documents in postgres. Writes raise a NOTIFY in the same
// transaction and a dedicated LISTEN connection turns notifications into
// snapshots, so every instance sharing the database sees every change.
type PostgresStore struct {
	pool   *pgxpool.Pool
	hub    *hub
	cancel context.CancelFunc
	done   chan struct{}
}

var _ RemoteStore = (*PostgresStore)(nil)

// OpenPostgres connects (retrying until connectTimeout), creates the schema
// and starts listening for changes.
func OpenPostgres(ctx context.Context, url string, connectTimeout time.Duration) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10

	var pool *pgxpool.Pool
	deadline := time.Now().Add(connectTimeout)
	for {
		attemptCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		pool, err = pgxpool.NewWithConfig(attemptCtx, cfg)
		if err == nil {
			if err = pool.Ping(attemptCtx); err == nil {
				cancel()
				break
			}
			pool.Close()
		}
		cancel()

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Warn.Printf("[OpenPostgres] not ready, retrying: %v", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	s := &PostgresStore{pool: pool, cancel: cancel, done: make(chan struct{})}
	s.hub = newHub(s.GetDocs)
	go s.listen(listenCtx)
	return s, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, collection string) ([]DocRef, error) {
	query, args, err := psql.Select("id").From("documents").
		Where(sq.Eq{"collection": collection}).OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	refs := make([]DocRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, DocRef{Collection: collection, ID: id})
	}
	return refs, nil
}

func (s *PostgresStore) GetDocs(ctx context.Context, q Query) ([]Document, error) {
	query, args, err := psql.Select("id", "data::text", "updated_at").From("documents").
		Where(sq.Eq{"collection": q.Collection}).OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			id      string
			raw     string
			updated time.Time
		)
		if err := rows.Scan(&id, &raw, &updated); err != nil {
			return nil, err
		}
		data, err := Decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", q.Collection, id, err)
		}
		docs = append(docs, Document{ID: id, Data: data, UpdateTime: updated.UTC()})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return q.apply(docs), nil
}

func (s *PostgresStore) AddDoc(ctx context.Context, collection string, data Data) (DocRef, error) {
	raw, err := Encode(data)
	if err != nil {
		return DocRef{}, err
	}
	ref := DocRef{Collection: collection, ID: NewID()}

	b := psql.Insert("documents").
		Columns("collection", "id", "data").
		Values(collection, ref.ID, sq.Expr("?::jsonb", string(raw)))
	if err := s.writeTx(ctx, collection, b, false); err != nil {
		return DocRef{}, fmt.Errorf("add to %s: %w", collection, err)
	}
	return ref, nil
}

func (s *PostgresStore) UpdateDoc(ctx context.Context, collection, id string, data Data) error {
	raw, err := Encode(data)
	if err != nil {
		return err
	}

	b := psql.Update("documents").
		Set("data", sq.Expr("?::jsonb", string(raw))).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"collection": collection, "id": id})
	if err := s.writeTx(ctx, collection, b, true); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *PostgresStore) DeleteDoc(ctx context.Context, collection, id string) error {
	b := psql.Delete("documents").Where(sq.Eq{"collection": collection, "id": id})
	if err := s.writeTx(ctx, collection, b, true); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// writeTx runs one statement and the change notification atomically.
func (s *PostgresStore) writeTx(ctx context.Context, collection string, b sq.Sqlizer, mustAffect bool) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if mustAffect && tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", notifyChannel, collection); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) OnSnapshot(ctx context.Context, q Query, fn func(Snapshot)) (Unsubscribe, error) {
	return s.hub.subscribe(ctx, q, fn)
}

func (s *PostgresStore) listen(ctx context.Context) {
	defer close(s.done)
	for {
		err := s.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		logger.Warn.Printf("[PostgresStore.listen] listener dropped, reconnecting: %v", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (s *PostgresStore) listenOnce(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}

	// changes made while no listener was attached
	for _, collection := range s.hub.collections() {
		s.hub.publish(ctx, collection)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		logger.Debug.Printf("[PostgresStore.listen] change in %q", n.Payload)
		s.hub.publish(ctx, n.Payload)
	}
}

func (s *PostgresStore) Close() error {
	s.cancel()
	<-s.done
	s.pool.Close()
	return nil
}
