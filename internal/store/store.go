package store

import (
	"context"

	"github.com/kestrelworks/navdeck/internal/domain"
)

// StateStore defines the persistence port for the two named durable values
// owned by the task lifecycle manager: the task-history collection and the
// configured backend endpoint. Implementations mirror manager-owned state
// to durable storage; they hold no ownership and perform full-value writes.
type StateStore interface {
	// LoadHistory returns the persisted task-history collection in its
	// stored order (most-recent-first). A missing value yields an empty
	// collection, not an error.
	LoadHistory(ctx context.Context) ([]*domain.TaskRecord, error)

	// SaveHistory replaces the persisted task-history collection.
	SaveHistory(ctx context.Context, history []*domain.TaskRecord) error

	// LoadEndpoint returns the persisted backend endpoint.
	// Returns ErrNotFound when no endpoint has been saved yet.
	LoadEndpoint(ctx context.Context) (string, error)

	// SaveEndpoint replaces the persisted backend endpoint.
	SaveEndpoint(ctx context.Context, endpoint string) error
}
