package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"creatflow/internal/engine"
)

// SubmitJob accepts a job submission and enqueues its work items.
func (a *App) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req engine.SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		a.fail(w, fmt.Errorf("%w: %v", engine.ErrInvalidSubmission, err))
		return
	}
	job, err := a.Service.Submit(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{
		"job_id":      job.ID,
		"status":      job.Status,
		"total_items": job.TotalItems,
	})
}

// JobStatus reports the job aggregate with per-item states and assets.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	view, err := a.Service.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, view)
}

// CancelJob requests cooperative cancellation.
func (a *App) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if err := a.Service.Cancel(r.Context(), jobID); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": "cancel_requested",
	})
}
