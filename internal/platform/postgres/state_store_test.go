package postgres

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelworks/navdeck/internal/domain"
	"github.com/kestrelworks/navdeck/internal/store"
	"github.com/kestrelworks/navdeck/migrations"
)

// newTestStateStore connects to the database named by
// NAVDECK_TEST_DATABASE_URL, applies migrations, and truncates app_state so
// each test starts clean. Tests are skipped when the variable is unset.
func newTestStateStore(t *testing.T) *StateStore {
	t.Helper()

	dsn := os.Getenv("NAVDECK_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("NAVDECK_TEST_DATABASE_URL not set, skipping postgres tests")
	}

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Ping())

	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, "."))

	_, err = db.Exec("TRUNCATE app_state")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStateStore(db, logger)
}

func TestPostgresHistoryRoundTrip(t *testing.T) {
	s := newTestStateStore(t)
	ctx := context.Background()

	first, err := domain.NewTaskRecord("first command")
	require.NoError(t, err)
	second, err := domain.NewTaskRecord("second command")
	require.NoError(t, err)
	second.Result = map[string]any{"items": []any{"a", "b"}}

	require.NoError(t, s.SaveHistory(ctx, []*domain.TaskRecord{second, first}))

	loaded, err := s.LoadHistory(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, second.ID, loaded[0].ID)
	assert.Equal(t, first.ID, loaded[1].ID)
	assert.NotNil(t, loaded[0].Result)
}

func TestPostgresHistoryMissingRow(t *testing.T) {
	s := newTestStateStore(t)

	loaded, err := s.LoadHistory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestPostgresHistoryUpsert(t *testing.T) {
	s := newTestStateStore(t)
	ctx := context.Background()

	rec, err := domain.NewTaskRecord("only")
	require.NoError(t, err)

	require.NoError(t, s.SaveHistory(ctx, []*domain.TaskRecord{rec}))
	require.NoError(t, s.SaveHistory(ctx, nil))

	loaded, err := s.LoadHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestPostgresEndpointRoundTrip(t *testing.T) {
	s := newTestStateStore(t)
	ctx := context.Background()

	_, err := s.LoadEndpoint(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SaveEndpoint(ctx, "http://executor.internal:5000"))
	require.NoError(t, s.SaveEndpoint(ctx, "http://executor.internal:5001"))

	endpoint, err := s.LoadEndpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://executor.internal:5001", endpoint)
}
