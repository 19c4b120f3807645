package store

import "errors"

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested named value does not exist
	// in the store.
	ErrNotFound = errors.New("value not found")

	// ErrCorruptState is returned by implementations that cannot decode a
	// persisted value. Callers are expected to treat this as an empty
	// initial state rather than propagating it.
	ErrCorruptState = errors.New("persisted state is corrupt")
)
