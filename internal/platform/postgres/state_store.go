// Package postgres implements the persistence port over PostgreSQL using
// the pgx stdlib driver. State lives in a single app_state key/value table
// with JSONB values, one row per named durable value.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kestrelworks/navdeck/internal/domain"
	"github.com/kestrelworks/navdeck/internal/store"
)

// Row names for the two named durable values.
const (
	historyKey  = "task_history"
	endpointKey = "backend_endpoint"
)

// DBTX is the database access abstraction, satisfied by both *sql.DB and
// *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// StateStore implements store.StateStore on PostgreSQL.
type StateStore struct {
	db     DBTX
	logger *slog.Logger
}

// NewStateStore creates a StateStore over the given database handle.
func NewStateStore(db DBTX, logger *slog.Logger) *StateStore {
	return &StateStore{
		db:     db,
		logger: logger.With("component", "postgres_state_store"),
	}
}

// LoadHistory implements store.StateStore. A missing row yields an empty
// collection; an undecodable one is discarded with a warning rather than
// propagated.
func (s *StateStore) LoadHistory(ctx context.Context) ([]*domain.TaskRecord, error) {
	var history []*domain.TaskRecord
	err := s.loadValue(ctx, historyKey, &history)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, nil
	case errors.Is(err, store.ErrCorruptState):
		s.logger.Warn("discarding unreadable task history", "error", err)
		return nil, nil
	case err != nil:
		return nil, err
	}
	return history, nil
}

// SaveHistory implements store.StateStore.
func (s *StateStore) SaveHistory(ctx context.Context, history []*domain.TaskRecord) error {
	if history == nil {
		history = []*domain.TaskRecord{}
	}
	return s.saveValue(ctx, historyKey, history)
}

// LoadEndpoint implements store.StateStore.
func (s *StateStore) LoadEndpoint(ctx context.Context) (string, error) {
	var endpoint string
	if err := s.loadValue(ctx, endpointKey, &endpoint); err != nil {
		return "", err
	}
	return endpoint, nil
}

// SaveEndpoint implements store.StateStore.
func (s *StateStore) SaveEndpoint(ctx context.Context, endpoint string) error {
	return s.saveValue(ctx, endpointKey, endpoint)
}

// loadValue reads and decodes one named value.
func (s *StateStore) loadValue(ctx context.Context, name string, dest any) error {
	query := `
		SELECT value
		FROM app_state
		WHERE name = $1
	`

	var raw []byte
	err := s.db.QueryRowContext(ctx, query, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load state value %q: %w", name, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", store.ErrCorruptState, name, err)
	}
	return nil
}

// saveValue upserts one named value as JSONB.
func (s *StateStore) saveValue(ctx context.Context, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode state value %q: %w", name, err)
	}

	query := `
		INSERT INTO app_state (name, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, name, raw); err != nil {
		return fmt.Errorf("failed to save state value %q: %w", name, err)
	}
	return nil
}

var _ store.StateStore = (*StateStore)(nil)
