// Package api implements the HTTP surface of the service: task submission
// and lifecycle operations, result listing and export downloads, and
// backend endpoint configuration. Handlers translate between transport
// concerns and the task lifecycle manager; they hold no state of their own.
package api
