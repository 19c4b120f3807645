// Package task implements the task lifecycle manager: it owns the task
// history and results collections, submits commands to the remote executor,
// drives per-task polling watchers until a terminal state, falls back to
// local simulated execution when the executor is unreachable, and mirrors
// every mutation to durable storage through the store port.
package task
