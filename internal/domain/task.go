package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task record.
type TaskStatus string

// Possible task status values. Progression is strictly forward
// (queued -> running -> done), except failed, which is terminal
// from any state.
const (
	TaskStatusQueued  TaskStatus = "queued"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusFailed  TaskStatus = "failed"
)

// Common validation errors for TaskRecord
var (
	ErrEmptyCommand      = errors.New("task command cannot be empty")
	ErrInvalidTaskStatus = errors.New("invalid task status")
)

// statusRank orders the forward progression of statuses. failed is handled
// separately since it is reachable from any non-terminal state.
var statusRank = map[TaskStatus]int{
	TaskStatusQueued:  0,
	TaskStatusRunning: 1,
	TaskStatusDone:    2,
}

// TaskRecord represents one submitted command and its execution state.
// The ID starts as a locally generated identifier and is rebound exactly
// once to the server-assigned identifier when remote submission succeeds.
type TaskRecord struct {
	ID        string     `json:"id"`
	Command   string     `json:"command"`
	Status    TaskStatus `json:"status"`
	Progress  int        `json:"progress"`
	CreatedAt time.Time  `json:"created_at"`
	Result    any        `json:"result,omitempty"`
}

// NewTaskRecord creates a new TaskRecord for the given command text.
// It generates a local UUID, sets the status to queued with zero progress,
// and stamps the creation time. The command must be non-empty after
// trimming whitespace.
func NewTaskRecord(command string) (*TaskRecord, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, ErrEmptyCommand
	}

	return &TaskRecord{
		ID:        uuid.NewString(),
		Command:   command,
		Status:    TaskStatusQueued,
		Progress:  0,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Terminal reports whether the record has reached a terminal state.
func (t *TaskRecord) Terminal() bool {
	return t.Status == TaskStatusDone || t.Status == TaskStatusFailed
}

// AdvanceStatus moves the record to the given status if the transition is
// legal: forward-only through queued -> running -> done, with failed
// accepted from any non-terminal state. Illegal transitions are ignored so
// a late or duplicate update can never regress a record.
// Reaching done clamps progress to 100.
func (t *TaskRecord) AdvanceStatus(status TaskStatus) error {
	if !isValidTaskStatus(status) {
		return ErrInvalidTaskStatus
	}
	if t.Terminal() {
		return nil
	}
	if status == TaskStatusFailed {
		t.Status = TaskStatusFailed
		return nil
	}
	if statusRank[status] <= statusRank[t.Status] && status != t.Status {
		return nil
	}
	t.Status = status
	if status == TaskStatusDone {
		t.Progress = 100
	}
	return nil
}

// AdvanceProgress raises progress toward the given value. Progress is
// non-decreasing while the record is non-terminal and is capped at 100.
func (t *TaskRecord) AdvanceProgress(progress int) {
	if t.Terminal() {
		return
	}
	if progress > 100 {
		progress = 100
	}
	if progress > t.Progress {
		t.Progress = progress
	}
}

// Clone returns a shallow copy of the record. The Result payload is shared;
// callers treat snapshots as read-only.
func (t *TaskRecord) Clone() *TaskRecord {
	c := *t
	return &c
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusQueued, TaskStatusRunning, TaskStatusDone, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// ParseTaskStatus maps a remote-reported status string to a TaskStatus.
// Matching is case-insensitive and accepts "completed" as an alias for
// done. Unknown strings return ok=false and are ignored by callers.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "queued", "pending":
		return TaskStatusQueued, true
	case "running", "in_progress", "processing":
		return TaskStatusRunning, true
	case "done", "completed":
		return TaskStatusDone, true
	case "failed", "error":
		return TaskStatusFailed, true
	default:
		return "", false
	}
}
