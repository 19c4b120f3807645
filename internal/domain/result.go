package domain

// ResultEntry is a materialized, user-curated view of a completed task.
// Entries have a lifetime independent of the originating TaskRecord and
// carry no uniqueness constraint: rerunning a command or promoting the
// same record twice produces multiple entries sharing a task id.
type ResultEntry struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	Result  any    `json:"result,omitempty"`
}
