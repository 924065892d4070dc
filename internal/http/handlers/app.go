package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"creatflow/internal/domain"
	"creatflow/internal/engine"
	"creatflow/internal/metrics"
	"creatflow/internal/queue"
)

// App carries the dependencies shared by every handler.
type App struct {
	Service *engine.Service
	Metrics *metrics.Recorder
	Logger  zerolog.Logger
}

func NewApp(svc *engine.Service, rec *metrics.Recorder, logger zerolog.Logger) *App {
	return &App{Service: svc, Metrics: rec, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// fail maps service errors onto HTTP status codes with a stable error body.
func (a *App) fail(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrInvalidSubmission), errors.Is(err, queue.ErrBadLane):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, queue.ErrUnknownMessage):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrJobTerminal):
		code = http.StatusConflict
	}
	if code == http.StatusInternalServerError {
		a.Logger.Error().Err(err).Msg("http: request failed")
	}
	a.json(w, code, map[string]string{"error": err.Error()})
}
