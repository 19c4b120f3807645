// Package store defines the persistence ports used by the task lifecycle
// manager, along with the sentinel errors shared by all implementations.
// Concrete adapters live under internal/platform.
package store
