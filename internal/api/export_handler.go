package api

import (
	"log/slog"
	"net/http"

	"github.com/kestrelworks/navdeck/internal/api/shared"
	"github.com/kestrelworks/navdeck/internal/export"
	"github.com/kestrelworks/navdeck/internal/task"
)

// Download filenames for the two export artifacts.
const (
	jsonExportFilename = "results.json"
	csvExportFilename  = "results.csv"
)

// ExportHandler serves downloadable renderings of the results collection.
type ExportHandler struct {
	manager *task.Manager
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(manager *task.Manager) *ExportHandler {
	return &ExportHandler{manager: manager}
}

// ExportJSON handles GET /api/exports/results.json requests: the full
// results collection pretty-printed with no loss of nested structure.
func (h *ExportHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	text, err := export.ToInterchangeText(h.manager.Results())
	if err != nil {
		slog.Error("Failed to render JSON export", "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to render export")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+jsonExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("Failed to write JSON export", "error", err)
	}
}

// ExportCSV handles GET /api/exports/results.csv requests: one row per
// result entry with nested payloads flattened into dotted columns.
func (h *ExportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	entries := h.manager.Results()
	items := make([]any, 0, len(entries))
	for _, entry := range entries {
		items = append(items, entry)
	}

	text := export.ToTabular(items)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+csvExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("Failed to write CSV export", "error", err)
	}
}
