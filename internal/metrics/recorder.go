// Package metrics keeps the engine's operational counters: lane depths,
// in-flight claims, and per-stage latency aggregates. The external
// autoscaler and the metrics endpoint both read snapshots from here.
package metrics

import (
	"sync"
	"time"

	"creatflow/internal/domain"
	"creatflow/internal/queue"
)

type stageStats struct {
	count int64
	total time.Duration
	max   time.Duration
}

// Recorder accumulates stage latencies and exposes point-in-time snapshots.
type Recorder struct {
	mu     sync.Mutex
	router *queue.Router
	stages map[string]*stageStats
}

// NewRecorder builds a recorder bound to the router whose depths it reports.
func NewRecorder(router *queue.Router) *Recorder {
	return &Recorder{router: router, stages: make(map[string]*stageStats)}
}

// ObserveStage records one stage execution.
func (r *Recorder) ObserveStage(stage string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats, ok := r.stages[stage]
	if !ok {
		stats = &stageStats{}
		r.stages[stage] = stats
	}
	stats.count++
	stats.total += elapsed
	if elapsed > stats.max {
		stats.max = elapsed
	}
}

// StageSnapshot summarizes one stage's observed latencies.
type StageSnapshot struct {
	Count     int64   `json:"count"`
	AvgMillis float64 `json:"avg_ms"`
	MaxMillis float64 `json:"max_ms"`
}

// Snapshot is a point-in-time view of the engine's load.
type Snapshot struct {
	Lanes    map[string]int           `json:"lanes"`
	InFlight int                      `json:"in_flight"`
	Stages   map[string]StageSnapshot `json:"stages"`
}

// Snapshot reads lane depths from the router and folds in stage aggregates.
func (r *Recorder) Snapshot() Snapshot {
	snap := Snapshot{
		Lanes:  make(map[string]int, 3),
		Stages: make(map[string]StageSnapshot),
	}
	if r.router != nil {
		for _, lane := range []domain.Lane{domain.LanePrimary, domain.LanePriority, domain.LaneDeadLetter} {
			snap.Lanes[string(lane)] = r.router.Depth(lane)
		}
		snap.InFlight = r.router.InFlight()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for stage, stats := range r.stages {
		avg := 0.0
		if stats.count > 0 {
			avg = float64(stats.total.Milliseconds()) / float64(stats.count)
		}
		snap.Stages[stage] = StageSnapshot{
			Count:     stats.count,
			AvgMillis: avg,
			MaxMillis: float64(stats.max.Milliseconds()),
		}
	}
	return snap
}
