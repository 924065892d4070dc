package handlers

import "net/http"

// EngineMetrics reports lane depths, in-flight claims, and stage latency
// aggregates. The external autoscaler polls this endpoint.
func (a *App) EngineMetrics(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Metrics.Snapshot())
}
