package api

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/kestrelworks/navdeck/internal/api/shared"
	"github.com/kestrelworks/navdeck/internal/task"
)

// UpdateEndpointRequest represents the request body for updating the
// backend endpoint.
type UpdateEndpointRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
}

// EndpointResponse represents the response data for the backend endpoint.
type EndpointResponse struct {
	Endpoint string `json:"endpoint"`
}

// SettingsHandler handles backend endpoint configuration requests.
type SettingsHandler struct {
	settings  *task.Settings
	validator *validator.Validate
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settings *task.Settings) *SettingsHandler {
	return &SettingsHandler{
		settings:  settings,
		validator: validator.New(),
	}
}

// GetEndpoint handles GET /api/settings/endpoint requests.
func (h *SettingsHandler) GetEndpoint(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, EndpointResponse{Endpoint: h.settings.Endpoint()})
}

// UpdateEndpoint handles PUT /api/settings/endpoint requests. The change
// is persisted and takes effect on the next request each poll loop issues;
// in-flight requests are unaffected.
func (h *SettingsHandler) UpdateEndpoint(w http.ResponseWriter, r *http.Request) {
	var req UpdateEndpointRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if err := h.settings.SetEndpoint(r.Context(), req.Endpoint); err != nil {
		slog.Error("Failed to persist endpoint", "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to save endpoint")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, EndpointResponse{Endpoint: h.settings.Endpoint()})
}
