package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kestrelworks/navdeck/internal/api/middleware"
	"github.com/kestrelworks/navdeck/internal/task"
)

// NewRouter builds the HTTP routing table for the service.
func NewRouter(manager *task.Manager) http.Handler {
	taskHandler := NewTaskHandler(manager)
	exportHandler := NewExportHandler(manager)
	settingsHandler := NewSettingsHandler(manager.Settings())

	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", taskHandler.SubmitTask)
			r.Get("/", taskHandler.ListTasks)
			r.Delete("/", taskHandler.ClearTasks)
			r.Get("/{id}", taskHandler.GetTask)
			r.Delete("/{id}", taskHandler.DeleteTask)
			r.Post("/{id}/rerun", taskHandler.RerunTask)
			r.Post("/{id}/promote", taskHandler.PromoteTask)
		})

		r.Get("/results", taskHandler.ListResults)

		r.Route("/exports", func(r chi.Router) {
			r.Get("/results.json", exportHandler.ExportJSON)
			r.Get("/results.csv", exportHandler.ExportCSV)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/endpoint", settingsHandler.GetEndpoint)
			r.Put("/endpoint", settingsHandler.UpdateEndpoint)
		})
	})

	return r
}
