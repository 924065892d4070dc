package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// AttachEdits stores a manual-edit overlay on a generated asset record. The
// moderated record fields stay untouched.
func (a *App) AttachEdits(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		a.fail(w, err)
		return
	}
	if err := a.Service.AttachManualEdits(r.Context(), chi.URLParam(r, "id"), body); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
