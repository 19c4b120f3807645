// Package events defines task transition events and the emitter/handler
// interfaces used to observe the task lifecycle without coupling observers
// to the manager.
package events
