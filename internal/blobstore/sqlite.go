package blobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteStore keeps blobs in an embedded SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

type migration struct {
	version    int
	statements []string
}

var sqliteMigrations = []migration{
	{version: 1, statements: []string{
		`CREATE TABLE IF NOT EXISTS videos (
			id   TEXT PRIMARY KEY,
			data BLOB
		)`,
	}},
	{version: 2, statements: []string{
		`ALTER TABLE videos ADD COLUMN content_type TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE videos ADD COLUMN size INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE videos ADD COLUMN created_at INTEGER NOT NULL DEFAULT 0`,
	}},
}

// OpenSQLite opens (creating if needed) the blob database at path and
// upgrades it to SchemaVersion.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create blob dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := newSQLiteStore(db, path)
	if err := migrateSQLite(ctx, db, sqliteMigrations); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func newSQLiteStore(db *sql.DB, path string) *SQLiteStore {
	return &SQLiteStore{db: db, path: path, now: time.Now}
}

func migrateSQLite(ctx context.Context, db *sql.DB, steps []migration) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS blob_schema (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema table: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM blob_schema`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range steps {
		if m.version <= current {
			continue
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		for _, stmt := range m.statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("apply migration %d: %w", m.version, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO blob_schema (version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, id string, payload []byte) error {
	if err := checkPut(id, payload); err != nil {
		return err
	}

	const query = `
		INSERT INTO videos (id, data, content_type, size, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			content_type = excluded.content_type,
			size = excluded.size,
			created_at = excluded.created_at`

	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, query, id, payload, sniff(payload), len(payload), millis(s.now()))
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to store blob %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Blob, error) {
	const query = `SELECT data, content_type, size, created_at FROM videos WHERE id = ?`

	var (
		blob    = Blob{ID: id}
		created int64
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&blob.Data, &blob.ContentType, &blob.Size, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", id, err)
	}
	if len(blob.Data) == 0 {
		return nil, ErrNotFound
	}

	blob.CreatedAt = fromMillis(created)
	if blob.Size == 0 {
		blob.Size = int64(len(blob.Data))
	}
	return &blob, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
