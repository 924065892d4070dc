package metrics

import (
	"testing"
	"time"

	"creatflow/internal/domain"
	"creatflow/internal/queue"
)

func TestSnapshotReportsLaneDepths(t *testing.T) {
	router := queue.NewRouter(queue.Options{})
	rec := NewRecorder(router)

	msg := domain.QueueMessage{ID: "m1", JobID: "j1", WorkItemID: "w1", Attempt: 1}
	if err := router.Enqueue(msg, domain.LanePrimary); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	router.DeadLetter(domain.QueueMessage{ID: "m2", Attempt: 3}, "boom")

	snap := rec.Snapshot()
	if snap.Lanes[string(domain.LanePrimary)] != 1 {
		t.Fatalf("primary depth = %d", snap.Lanes[string(domain.LanePrimary)])
	}
	if snap.Lanes[string(domain.LaneDeadLetter)] != 1 {
		t.Fatalf("dead letter depth = %d", snap.Lanes[string(domain.LaneDeadLetter)])
	}
	if snap.InFlight != 0 {
		t.Fatalf("in flight = %d", snap.InFlight)
	}

	if _, ok := router.TryClaim(); !ok {
		t.Fatalf("claim failed")
	}
	snap = rec.Snapshot()
	if snap.InFlight != 1 || snap.Lanes[string(domain.LanePrimary)] != 0 {
		t.Fatalf("after claim: %+v", snap)
	}
}

func TestObserveStageAggregates(t *testing.T) {
	rec := NewRecorder(nil)
	rec.ObserveStage("analyze", 100*time.Millisecond)
	rec.ObserveStage("analyze", 300*time.Millisecond)
	rec.ObserveStage("plan", 10*time.Millisecond)

	snap := rec.Snapshot()
	analyze := snap.Stages["analyze"]
	if analyze.Count != 2 {
		t.Fatalf("count = %d", analyze.Count)
	}
	if analyze.AvgMillis != 200 {
		t.Fatalf("avg = %v", analyze.AvgMillis)
	}
	if analyze.MaxMillis != 300 {
		t.Fatalf("max = %v", analyze.MaxMillis)
	}
	if snap.Stages["plan"].Count != 1 {
		t.Fatalf("plan count = %d", snap.Stages["plan"].Count)
	}
}
