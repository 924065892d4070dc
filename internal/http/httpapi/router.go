// Package httpapi assembles the engine's HTTP surface.
package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"creatflow/internal/http/handlers"
	"creatflow/internal/middleware"
)

func NewRouter(app *handlers.App, logger zerolog.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer)
	r.Use(middleware.Logger(logger))

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", app.SubmitJob)
		r.Get("/{id}", app.JobStatus)
		r.Post("/{id}/cancel", app.CancelJob)
	})

	r.Route("/v1/dlq", func(r chi.Router) {
		r.Get("/", app.ListDeadLetters)
		r.Post("/{id}/requeue", app.RequeueDeadLetter)
	})

	r.Post("/v1/assets/{id}/edits", app.AttachEdits)
	r.Get("/v1/metrics/engine", app.EngineMetrics)

	return r
}
