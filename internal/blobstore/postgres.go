package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the part of *pgxpool.Pool the store needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore keeps blobs in a Postgres table. The pool is owned by the
// caller.
type PostgresStore struct {
	db  PgxPool
	now func() time.Time
}

var postgresMigrations = []migration{
	{version: 1, statements: []string{
		`CREATE TABLE IF NOT EXISTS videos (
			id   TEXT PRIMARY KEY,
			data BYTEA
		)`,
	}},
	{version: 2, statements: []string{
		`ALTER TABLE videos ADD COLUMN IF NOT EXISTS content_type TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE videos ADD COLUMN IF NOT EXISTS size BIGINT NOT NULL DEFAULT 0`,
		`ALTER TABLE videos ADD COLUMN IF NOT EXISTS created_at BIGINT NOT NULL DEFAULT 0`,
	}},
}

func NewPostgresStore(ctx context.Context, db PgxPool) (*PostgresStore, error) {
	if err := migratePostgres(ctx, db, postgresMigrations); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db, now: time.Now}, nil
}

func migratePostgres(ctx context.Context, db PgxPool, steps []migration) error {
	if _, err := db.Exec(ctx, `CREATE TABLE IF NOT EXISTS blob_schema (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema table: %w", err)
	}

	var current int
	if err := db.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM blob_schema`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range steps {
		if m.version <= current {
			continue
		}
		if err := applyPostgres(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func applyPostgres(ctx context.Context, db PgxPool, m migration) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.version, err)
	}
	for _, stmt := range m.statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
	}
	if _, err := tx.Exec(ctx, `INSERT INTO blob_schema (version) VALUES ($1)`, m.version); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("record migration %d: %w", m.version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.version, err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, id string, payload []byte) error {
	if err := checkPut(id, payload); err != nil {
		return err
	}

	const query = `
		INSERT INTO videos (id, data, content_type, size, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			content_type = EXCLUDED.content_type,
			size = EXCLUDED.size,
			created_at = EXCLUDED.created_at`

	if _, err := s.db.Exec(ctx, query, id, payload, sniff(payload), int64(len(payload)), millis(s.now())); err != nil {
		return fmt.Errorf("failed to store blob %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Blob, error) {
	const query = `SELECT data, content_type, size, created_at FROM videos WHERE id = $1`

	var (
		blob    = Blob{ID: id}
		created int64
	)
	err := s.db.QueryRow(ctx, query, id).Scan(&blob.Data, &blob.ContentType, &blob.Size, &created)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", id, err)
	}
	if len(blob.Data) == 0 {
		return nil, ErrNotFound
	}

	if blob.Size == 0 {
		blob.Size = int64(len(blob.Data))
	}
	blob.CreatedAt = fromMillis(created)
	return &blob, nil
}

// Close is a no-op; the pool belongs to the container.
func (s *PostgresStore) Close() error { return nil }
