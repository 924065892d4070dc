package repo

import (
	"context"
	"errors"
	"testing"

	"creatflow/internal/domain"
)

func seed(t *testing.T, m *Memory, itemIDs ...string) {
	t.Helper()
	items := make([]domain.WorkItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		items = append(items, domain.WorkItem{ID: id, AssetID: "a1", AssetRef: "assets/a1.png"})
	}
	job := &domain.GenerationJob{ID: "job1", ProjectID: "p1", Status: domain.JobStatusPending}
	if err := m.CreateJob(context.Background(), job, items); err != nil {
		t.Fatalf("create job: %v", err)
	}
}

func TestBeginAttemptClaimsOnceAndFlipsJob(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seed(t, m, "w1")

	ok, err := m.BeginAttempt(ctx, "w1", 1)
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	job, _ := m.GetJob(ctx, "job1")
	if job.Status != domain.JobStatusProcessing {
		t.Fatalf("job status = %q", job.Status)
	}

	// Same attempt again is a duplicate delivery.
	ok, err = m.BeginAttempt(ctx, "w1", 1)
	if err != nil || ok {
		t.Fatalf("duplicate claim: ok=%v err=%v", ok, err)
	}

	// Higher attempt re-claims after a requeue.
	ok, err = m.BeginAttempt(ctx, "w1", 2)
	if err != nil || !ok {
		t.Fatalf("retry claim: ok=%v err=%v", ok, err)
	}

	if err := m.CompleteWorkItem(ctx, "w1", 2); err != nil {
		t.Fatalf("complete: %v", err)
	}
	ok, err = m.BeginAttempt(ctx, "w1", 3)
	if err != nil || ok {
		t.Fatalf("terminal claim: ok=%v err=%v", ok, err)
	}

	if _, err := m.BeginAttempt(ctx, "missing", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing item err = %v", err)
	}
}

func TestRecomputeJobStatusTransitions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seed(t, m, "w1", "w2")

	status, err := m.RecomputeJobStatus(ctx, "job1")
	if err != nil || status != domain.JobStatusPending {
		t.Fatalf("initial status = %q err=%v", status, err)
	}

	if _, err := m.BeginAttempt(ctx, "w1", 1); err != nil {
		t.Fatalf("begin: %v", err)
	}
	status, _ = m.RecomputeJobStatus(ctx, "job1")
	if status != domain.JobStatusProcessing {
		t.Fatalf("status after claim = %q", status)
	}

	_ = m.CompleteWorkItem(ctx, "w1", 1)
	status, _ = m.RecomputeJobStatus(ctx, "job1")
	if status != domain.JobStatusProcessing {
		t.Fatalf("status with one open item = %q", status)
	}
	job, _ := m.GetJob(ctx, "job1")
	if job.Progress != 1 {
		t.Fatalf("progress = %d", job.Progress)
	}

	if _, err := m.BeginAttempt(ctx, "w2", 1); err != nil {
		t.Fatalf("begin w2: %v", err)
	}
	_ = m.FailWorkItem(ctx, "w2", 1, "analyze: transient: gave up")
	status, _ = m.RecomputeJobStatus(ctx, "job1")
	if status != domain.JobStatusFailed {
		t.Fatalf("final status = %q", status)
	}
	job, _ = m.GetJob(ctx, "job1")
	if job.Progress != 2 || job.LastError == "" {
		t.Fatalf("job = %+v", job)
	}
}

func TestAllSucceededCompletes(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seed(t, m, "w1", "w2")

	for _, id := range []string{"w1", "w2"} {
		if _, err := m.BeginAttempt(ctx, id, 1); err != nil {
			t.Fatalf("begin %s: %v", id, err)
		}
		if err := m.CompleteWorkItem(ctx, id, 1); err != nil {
			t.Fatalf("complete %s: %v", id, err)
		}
	}
	status, _ := m.RecomputeJobStatus(ctx, "job1")
	if status != domain.JobStatusCompleted {
		t.Fatalf("status = %q", status)
	}
}

func TestCancelGuards(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seed(t, m, "w1")

	if err := m.RequestCancel(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing cancel err = %v", err)
	}
	if err := m.RequestCancel(ctx, "job1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	cancelled, err := m.CancelRequested(ctx, "job1")
	if err != nil || !cancelled {
		t.Fatalf("cancelled=%v err=%v", cancelled, err)
	}

	if _, err := m.BeginAttempt(ctx, "w1", 1); err != nil {
		t.Fatalf("begin: %v", err)
	}
	_ = m.CompleteWorkItem(ctx, "w1", 1)
	if _, err := m.RecomputeJobStatus(ctx, "job1"); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if err := m.RequestCancel(ctx, "job1"); !errors.Is(err, domain.ErrJobTerminal) {
		t.Fatalf("terminal cancel err = %v", err)
	}
}

func TestReopenWorkItemResetsFailedOnly(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seed(t, m, "w1", "w2")

	if _, err := m.ReopenWorkItem(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing item err = %v", err)
	}

	// A non-terminal item passes through with its attempt count.
	if _, err := m.BeginAttempt(ctx, "w1", 2); err != nil {
		t.Fatalf("begin: %v", err)
	}
	attempt, err := m.ReopenWorkItem(ctx, "w1")
	if err != nil || attempt != 2 {
		t.Fatalf("reopen processing item: attempt=%d err=%v", attempt, err)
	}

	// A failed item goes back to pending and accepts the next attempt.
	_ = m.FailWorkItem(ctx, "w1", 2, "analyze: transient: gave up")
	attempt, err = m.ReopenWorkItem(ctx, "w1")
	if err != nil || attempt != 2 {
		t.Fatalf("reopen failed item: attempt=%d err=%v", attempt, err)
	}
	items, _ := m.ListWorkItems(ctx, "job1")
	if items[0].State != domain.WorkItemPending || items[0].FailReason != "" {
		t.Fatalf("item after reopen = %+v", items[0])
	}
	ok, err := m.BeginAttempt(ctx, "w1", attempt+1)
	if err != nil || !ok {
		t.Fatalf("claim after reopen: ok=%v err=%v", ok, err)
	}

	// A succeeded item stays closed.
	if _, err := m.BeginAttempt(ctx, "w2", 1); err != nil {
		t.Fatalf("begin w2: %v", err)
	}
	_ = m.CompleteWorkItem(ctx, "w2", 1)
	if _, err := m.ReopenWorkItem(ctx, "w2"); !errors.Is(err, domain.ErrDuplicateOperation) {
		t.Fatalf("reopen succeeded item err = %v", err)
	}
}

func TestAssetSaveIsIdempotentPerWorkItem(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	record := &domain.GeneratedAssetRecord{ID: "r1", WorkItemID: "w1", JobID: "j1", StorageKey: "renders/x.png"}
	if err := m.Save(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}
	dup := &domain.GeneratedAssetRecord{ID: "r2", WorkItemID: "w1", JobID: "j1"}
	if err := m.Save(ctx, dup); !errors.Is(err, domain.ErrDuplicateOperation) {
		t.Fatalf("duplicate save err = %v", err)
	}
	records, _ := m.ListByJob(ctx, "j1")
	if len(records) != 1 || records[0].ID != "r1" {
		t.Fatalf("records = %+v", records)
	}
}
