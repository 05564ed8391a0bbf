package blobstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	createSchemaSQL = `CREATE TABLE IF NOT EXISTS blob_schema`
	readVersionSQL  = `SELECT COALESCE(MAX(version), 0) FROM blob_schema`
	selectBlobSQL   = `SELECT data, content_type, size, created_at FROM videos WHERE id = $1`
	recordStepSQL   = `INSERT INTO blob_schema (version) VALUES ($1)`
)

func newPgxMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func expectVersion(mock pgxmock.PgxPoolIface, version int) {
	mock.ExpectExec(regexp.QuoteMeta(createSchemaSQL)).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta(readVersionSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(version))
}

func blobRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"data", "content_type", "size", "created_at"})
}

func TestPostgresMigratesFreshDatabase(t *testing.T) {
	mock := newPgxMock(t)
	expectVersion(mock, 0)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS videos`)).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta(recordStepSQL)).WithArgs(1).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	for _, column := range []string{"content_type", "size", "created_at"} {
		mock.ExpectExec(regexp.QuoteMeta(`ALTER TABLE videos ADD COLUMN IF NOT EXISTS ` + column)).
			WillReturnResult(pgxmock.NewResult("ALTER", 0))
	}
	mock.ExpectExec(regexp.QuoteMeta(recordStepSQL)).WithArgs(2).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	_, err := NewPostgresStore(context.Background(), mock)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpgradeRunsOnlyMissingSteps(t *testing.T) {
	mock := newPgxMock(t)
	expectVersion(mock, 1)

	mock.ExpectBegin()
	for i := 0; i < 3; i++ {
		mock.ExpectExec(`ALTER TABLE videos ADD COLUMN`).WillReturnResult(pgxmock.NewResult("ALTER", 0))
	}
	mock.ExpectExec(regexp.QuoteMeta(recordStepSQL)).WithArgs(2).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	store, err := NewPostgresStore(context.Background(), mock)
	require.NoError(t, err)

	// rows written before v2 have no size column value yet
	mock.ExpectQuery(regexp.QuoteMeta(selectBlobSQL)).WithArgs("old").
		WillReturnRows(blobRows().AddRow([]byte("legacy bytes"), "", int64(0), int64(0)))

	blob, err := store.Get(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, "legacy bytes", string(blob.Data))
	assert.Equal(t, int64(len("legacy bytes")), blob.Size)
	assert.True(t, blob.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSkipsMigrationsAtCurrentVersion(t *testing.T) {
	mock := newPgxMock(t)
	expectVersion(mock, SchemaVersion)

	_, err := NewPostgresStore(context.Background(), mock)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFailedMigrationRollsBack(t *testing.T) {
	mock := newPgxMock(t)
	expectVersion(mock, 1)

	mock.ExpectBegin()
	mock.ExpectExec(`ALTER TABLE videos ADD COLUMN`).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	_, err := NewPostgresStore(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply migration 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPutThenGet(t *testing.T) {
	mock := newPgxMock(t)
	created := time.UnixMilli(1_700_000_000_000)
	store := &PostgresStore{db: mock, now: func() time.Time { return created }}
	ctx := context.Background()

	for _, payload := range [][]byte{samplePayload, []byte("second version")} {
		mock.ExpectExec(`INSERT INTO videos`).
			WithArgs("vid", payload, pgxmock.AnyArg(), int64(len(payload)), created.UnixMilli()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		require.NoError(t, store.Put(ctx, "vid", payload))
	}

	mock.ExpectQuery(regexp.QuoteMeta(selectBlobSQL)).WithArgs("vid").
		WillReturnRows(blobRows().AddRow([]byte("second version"), "text/plain; charset=utf-8", int64(14), created.UnixMilli()))

	blob, err := store.Get(ctx, "vid")
	require.NoError(t, err)
	assert.Equal(t, "second version", string(blob.Data))
	assert.Equal(t, int64(14), blob.Size)
	assert.Equal(t, created.UnixMilli(), blob.CreatedAt.UnixMilli())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetNotFound(t *testing.T) {
	mock := newPgxMock(t)
	store := &PostgresStore{db: mock, now: time.Now}
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(selectBlobSQL)).WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(regexp.QuoteMeta(selectBlobSQL)).WithArgs("empty").
		WillReturnRows(blobRows().AddRow([]byte{}, "", int64(0), int64(0)))
	_, err = store.Get(ctx, "empty")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(regexp.QuoteMeta(selectBlobSQL)).WithArgs("down").WillReturnError(errors.New("connection reset"))
	_, err = store.Get(ctx, "down")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRejectsEmptyInput(t *testing.T) {
	store := &PostgresStore{db: newPgxMock(t), now: time.Now}

	assert.Error(t, store.Put(context.Background(), "", samplePayload))
	assert.Error(t, store.Put(context.Background(), "X", nil))
}
