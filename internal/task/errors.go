package task

import "errors"

// Errors returned by manager operations that reference existing records.
var (
	// ErrTaskNotFound is returned when an operation targets a task id that
	// is not present in the history collection.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskNotCompleted is returned when promoting a record that has not
	// reached the done state.
	ErrTaskNotCompleted = errors.New("task is not completed")
)
