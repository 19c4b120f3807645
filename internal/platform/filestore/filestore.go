// Package filestore implements the persistence port over plain JSON files,
// one file per named durable value. It is the default adapter: no external
// services, survives restarts, and degrades to empty state when a file is
// missing or unreadable.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/kestrelworks/navdeck/internal/domain"
	"github.com/kestrelworks/navdeck/internal/store"
)

// File names for the two named durable values.
const (
	historyFile  = "history.json"
	endpointFile = "endpoint.json"
)

// FileStore mirrors manager-owned state to JSON files under a directory.
// Writes are whole-value: the expected collection sizes are small and a
// full rewrite per mutation is cheap.
type FileStore struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// New creates a FileStore rooted at dir, creating the directory if needed.
func New(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{
		dir:    dir,
		logger: logger.With("component", "filestore"),
	}, nil
}

// LoadHistory implements store.StateStore. A missing or corrupt file yields
// an empty collection: malformed persisted state must never propagate.
func (f *FileStore) LoadHistory(ctx context.Context) ([]*domain.TaskRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var history []*domain.TaskRecord
	if err := f.readValue(historyFile, &history); err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warn("discarding unreadable task history", "error", err)
		}
		return nil, nil
	}
	return history, nil
}

// SaveHistory implements store.StateStore.
func (f *FileStore) SaveHistory(ctx context.Context, history []*domain.TaskRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if history == nil {
		history = []*domain.TaskRecord{}
	}
	return f.writeValue(historyFile, history)
}

// LoadEndpoint implements store.StateStore.
func (f *FileStore) LoadEndpoint(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var endpoint string
	if err := f.readValue(endpointFile, &endpoint); err != nil {
		if os.IsNotExist(err) {
			return "", store.ErrNotFound
		}
		f.logger.Warn("discarding unreadable endpoint value", "error", err)
		return "", store.ErrNotFound
	}
	return endpoint, nil
}

// SaveEndpoint implements store.StateStore.
func (f *FileStore) SaveEndpoint(ctx context.Context, endpoint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.writeValue(endpointFile, endpoint)
}

// readValue decodes one named value. The caller holds f.mu.
func (f *FileStore) readValue(name string, dest any) error {
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", store.ErrCorruptState, name, err)
	}
	return nil
}

// writeValue encodes one named value atomically: write to a temp file in
// the same directory, then rename over the target. A crash mid-write can
// never leave a half-written value behind.
func (f *FileStore) writeValue(name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	target := filepath.Join(f.dir, name)
	tmp, err := os.CreateTemp(f.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

var _ store.StateStore = (*FileStore)(nil)
