package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelworks/navdeck/internal/domain"
)

// TaskEvent records one observable transition of a task record: a status
// change, a progress update, or a terminal result. Events carry enough
// information for handlers (audit logging, notifications) to act without
// reaching back into the task manager.
type TaskEvent struct {
	// ID is a unique identifier for this event.
	ID uuid.UUID `json:"id"`

	// TaskID identifies the task record the event refers to. Note that a
	// task's id rebinds once on successful remote submission; events emitted
	// after the rebind carry the server-assigned id.
	TaskID string `json:"task_id"`

	// Command is the original user command text.
	Command string `json:"command"`

	// Status is the record's status after the transition.
	Status domain.TaskStatus `json:"status"`

	// Progress is the record's progress after the transition.
	Progress int `json:"progress"`

	// Simulated marks transitions driven by the local fallback executor.
	Simulated bool `json:"simulated,omitempty"`

	// OccurredAt is the timestamp when the event was created.
	OccurredAt time.Time `json:"occurred_at"`
}

// NewTaskEvent creates a TaskEvent snapshot for the given record.
func NewTaskEvent(record *domain.TaskRecord, simulated bool) TaskEvent {
	return TaskEvent{
		ID:         uuid.New(),
		TaskID:     record.ID,
		Command:    record.Command,
		Status:     record.Status,
		Progress:   record.Progress,
		Simulated:  simulated,
		OccurredAt: time.Now().UTC(),
	}
}

// Handler defines an interface for components that can handle task events.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event TaskEvent) error
}

// Emitter defines an interface for components that can emit task events.
// This allows the task manager to publish transitions without direct
// knowledge of handlers.
type Emitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event TaskEvent)
}
