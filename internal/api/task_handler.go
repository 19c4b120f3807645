package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kestrelworks/navdeck/internal/api/shared"
	"github.com/kestrelworks/navdeck/internal/domain"
	"github.com/kestrelworks/navdeck/internal/task"
)

// SubmitTaskRequest represents the request body for submitting a command.
// The command is deliberately not validated as non-empty here: a
// whitespace-only command is a silent no-op by contract, not an error.
type SubmitTaskRequest struct {
	Command string `json:"command"`
}

// TaskResponse represents the response data for a task record.
type TaskResponse struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	Result    any       `json:"result,omitempty"`
}

// ResultEntryResponse represents the response data for a result entry.
type ResultEntryResponse struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	Result  any    `json:"result,omitempty"`
}

// TaskHandler handles task lifecycle HTTP requests.
type TaskHandler struct {
	manager   *task.Manager
	validator *validator.Validate
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(manager *task.Manager) *TaskHandler {
	return &TaskHandler{
		manager:   manager,
		validator: validator.New(),
	}
}

// SubmitTask handles POST /api/tasks requests. Processing is asynchronous,
// so a tracked submission returns 202 Accepted. A whitespace-only command
// is acknowledged with 204 No Content and leaves the history untouched.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var req SubmitTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	record, err := h.manager.Submit(r.Context(), req.Command)
	if err != nil {
		slog.Error("Failed to submit task", "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to submit task")
		return
	}
	if record == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, taskToDTOResponse(record))
}

// ListTasks handles GET /api/tasks requests. An optional q parameter
// filters the history by command substring.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	records := h.manager.Tasks(r.URL.Query().Get("q"))

	response := make([]TaskResponse, 0, len(records))
	for _, rec := range records {
		response = append(response, taskToDTOResponse(rec))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]any{"tasks": response})
}

// GetTask handles GET /api/tasks/{id} requests.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	record, err := h.manager.Task(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToDTOResponse(record))
}

// DeleteTask handles DELETE /api/tasks/{id} requests. Removal is
// idempotent: deleting an unknown id succeeds.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	h.manager.Remove(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// ClearTasks handles DELETE /api/tasks requests. Clearing the whole
// history is destructive, so the confirm=true query parameter is required.
func (h *TaskHandler) ClearTasks(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Clearing history requires confirm=true")
		return
	}
	h.manager.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// RerunTask handles POST /api/tasks/{id}/rerun requests. A rerun always
// creates a new record; the original is never mutated.
func (h *TaskHandler) RerunTask(w http.ResponseWriter, r *http.Request) {
	record, err := h.manager.Rerun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		slog.Error("Failed to rerun task", "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to rerun task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, taskToDTOResponse(record))
}

// PromoteTask handles POST /api/tasks/{id}/promote requests, materializing
// a result entry from a completed record.
func (h *TaskHandler) PromoteTask(w http.ResponseWriter, r *http.Request) {
	entry, err := h.manager.Promote(chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, task.ErrTaskNotFound):
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		case errors.Is(err, task.ErrTaskNotCompleted):
			shared.RespondWithError(w, r, http.StatusConflict, "Task has not completed")
		default:
			slog.Error("Failed to promote task", "error", err)
			shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to promote task")
		}
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, resultToDTOResponse(entry))
}

// ListResults handles GET /api/results requests.
func (h *TaskHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	entries := h.manager.Results()

	response := make([]ResultEntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, resultToDTOResponse(entry))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]any{"results": response})
}

// taskToDTOResponse converts a domain.TaskRecord to a TaskResponse.
func taskToDTOResponse(record *domain.TaskRecord) TaskResponse {
	return TaskResponse{
		ID:        record.ID,
		Command:   record.Command,
		Status:    string(record.Status),
		Progress:  record.Progress,
		CreatedAt: record.CreatedAt,
		Result:    record.Result,
	}
}

// resultToDTOResponse converts a domain.ResultEntry to a ResultEntryResponse.
func resultToDTOResponse(entry domain.ResultEntry) ResultEntryResponse {
	return ResultEntryResponse{
		ID:      entry.ID,
		Command: entry.Command,
		Result:  entry.Result,
	}
}
