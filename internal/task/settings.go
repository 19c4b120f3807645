package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/kestrelworks/navdeck/internal/store"
)

// Settings holds the single mutable configuration value shared by all
// submissions: the backend endpoint. It satisfies remote.EndpointSource, so
// the client reads the current value at request time and an endpoint change
// mid-poll takes effect on the next poll tick.
type Settings struct {
	mu       sync.RWMutex
	endpoint string
	store    store.StateStore
	logger   *slog.Logger
}

// NewSettings creates Settings seeded from the persisted endpoint, falling
// back to the given default when none has been saved yet. A corrupt
// persisted value degrades to the default with a warning.
func NewSettings(ctx context.Context, stateStore store.StateStore, defaultEndpoint string, logger *slog.Logger) *Settings {
	s := &Settings{
		endpoint: defaultEndpoint,
		store:    stateStore,
		logger:   logger.With("component", "settings"),
	}

	persisted, err := stateStore.LoadEndpoint(ctx)
	switch {
	case err == nil && persisted != "":
		s.endpoint = persisted
	case err != nil && !errors.Is(err, store.ErrNotFound):
		s.logger.Warn("failed to load persisted endpoint, using default",
			"default_endpoint", defaultEndpoint,
			"error", err)
	}

	return s
}

// Endpoint returns the current backend endpoint.
func (s *Settings) Endpoint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endpoint
}

// SetEndpoint updates the backend endpoint and mirrors it to durable
// storage. In-flight polling is unaffected; each subsequent request reads
// the new value.
func (s *Settings) SetEndpoint(ctx context.Context, endpoint string) error {
	s.mu.Lock()
	s.endpoint = endpoint
	s.mu.Unlock()

	if err := s.store.SaveEndpoint(ctx, endpoint); err != nil {
		s.logger.Error("failed to persist endpoint", "error", err)
		return err
	}
	return nil
}
