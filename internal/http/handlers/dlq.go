package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"creatflow/internal/domain"
	"creatflow/internal/engine"
)

// ListDeadLetters exposes the dead-letter lane for operator inspection.
func (a *App) ListDeadLetters(w http.ResponseWriter, r *http.Request) {
	messages := a.Service.DeadLetters()
	a.json(w, http.StatusOK, map[string]any{
		"count":    len(messages),
		"messages": messages,
	})
}

type requeueReq struct {
	Lane string `json:"lane"`
}

// RequeueDeadLetter moves one parked message back to a claimable lane.
func (a *App) RequeueDeadLetter(w http.ResponseWriter, r *http.Request) {
	var req requeueReq
	if r.Body != nil {
		// An empty body means the default lane.
		_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req)
	}
	lane := domain.LanePrimary
	if req.Lane != "" {
		parsed, ok := domain.ParseLane(req.Lane)
		if !ok || parsed == domain.LaneDeadLetter {
			a.fail(w, fmt.Errorf("%w: lane %q is not claimable", engine.ErrInvalidSubmission, req.Lane))
			return
		}
		lane = parsed
	}

	messageID := chi.URLParam(r, "id")
	if err := a.Service.RequeueDeadLetter(r.Context(), messageID, lane); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{
		"message_id": messageID,
		"lane":       string(lane),
	})
}
