package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"creatflow/internal/adapter/repo"
	"creatflow/internal/domain"
	"creatflow/internal/engine"
	"creatflow/internal/queue"
)

var bannerFormat = domain.TargetFormat{ID: "banner", Width: 1200, Height: 400, Kind: domain.FormatRepurposing}

func newService(t *testing.T) (*engine.Service, *repo.Memory, *queue.Router) {
	t.Helper()
	mem := repo.NewMemory()
	router := queue.NewRouter(queue.Options{})
	return engine.NewService(mem, mem, router, zerolog.Nop()), mem, router
}

func submission(priority bool, items int) engine.SubmitRequest {
	req := engine.SubmitRequest{ProjectID: "p1", Priority: priority}
	for i := 0; i < items; i++ {
		req.Items = append(req.Items, engine.SubmitItem{
			AssetID:  "a1",
			AssetRef: "assets/a1.png",
			Format:   bannerFormat,
		})
	}
	return req
}

func TestSubmitCreatesJobAndEnqueues(t *testing.T) {
	ctx := context.Background()
	svc, mem, router := newService(t)

	job, err := svc.Submit(ctx, submission(false, 3))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Status != domain.JobStatusPending || job.TotalItems != 3 {
		t.Fatalf("job = %+v", job)
	}

	items, err := mem.ListWorkItems(ctx, job.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("items = %d", len(items))
	}
	for _, item := range items {
		if item.State != domain.WorkItemPending {
			t.Fatalf("item state = %q", item.State)
		}
	}
	if got := router.Depth(domain.LanePrimary); got != 3 {
		t.Fatalf("primary depth = %d", got)
	}
	if got := router.Depth(domain.LanePriority); got != 0 {
		t.Fatalf("priority depth = %d", got)
	}
}

func TestSubmitPriorityUsesPriorityLane(t *testing.T) {
	svc, _, router := newService(t)
	if _, err := svc.Submit(context.Background(), submission(true, 2)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := router.Depth(domain.LanePriority); got != 2 {
		t.Fatalf("priority depth = %d", got)
	}
	msg, ok := router.TryClaim()
	if !ok || msg.Lane != domain.LanePriority || msg.Attempt != 1 {
		t.Fatalf("claimed = %+v ok=%v", msg, ok)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	cases := []engine.SubmitRequest{
		{},
		{ProjectID: "p1"},
		{ProjectID: "p1", Items: []engine.SubmitItem{{Format: bannerFormat}}},
		{ProjectID: "p1", Items: []engine.SubmitItem{{AssetRef: "r", Format: domain.TargetFormat{ID: "bad", Width: 0, Height: 10, Kind: domain.FormatResizing}}}},
		{ProjectID: "p1", Items: []engine.SubmitItem{{AssetRef: "r", Format: domain.TargetFormat{ID: "bad", Width: 10, Height: 10, Kind: "mystery"}}}},
	}
	for i, req := range cases {
		if _, err := svc.Submit(ctx, req); !errors.Is(err, engine.ErrInvalidSubmission) {
			t.Fatalf("case %d: err = %v, want invalid submission", i, err)
		}
	}
}

func TestStatusAggregatesJobItemsAssets(t *testing.T) {
	ctx := context.Background()
	svc, mem, _ := newService(t)

	job, err := svc.Submit(ctx, submission(false, 1))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	items, _ := mem.ListWorkItems(ctx, job.ID)
	record := &domain.GeneratedAssetRecord{ID: "r1", WorkItemID: items[0].ID, JobID: job.ID, StorageKey: "renders/x.png"}
	if err := mem.Save(ctx, record); err != nil {
		t.Fatalf("save record: %v", err)
	}

	view, err := svc.Status(ctx, job.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if view.Job.ID != job.ID || len(view.Items) != 1 || len(view.Assets) != 1 {
		t.Fatalf("view = %+v", view)
	}

	if _, err := svc.Status(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing job err = %v", err)
	}
}

func TestCancelRejectsTerminalJob(t *testing.T) {
	ctx := context.Background()
	svc, mem, _ := newService(t)

	job, _ := svc.Submit(ctx, submission(false, 1))
	items, _ := mem.ListWorkItems(ctx, job.ID)
	if _, err := mem.BeginAttempt(ctx, items[0].ID, 1); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := mem.CompleteWorkItem(ctx, items[0].ID, 1); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := mem.RecomputeJobStatus(ctx, job.ID); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	if err := svc.Cancel(ctx, job.ID); !errors.Is(err, domain.ErrJobTerminal) {
		t.Fatalf("cancel terminal job err = %v", err)
	}
}

func TestDeadLetterRequeueReopensItem(t *testing.T) {
	ctx := context.Background()
	svc, mem, router := newService(t)
	job, _ := svc.Submit(ctx, submission(false, 1))
	items, _ := mem.ListWorkItems(ctx, job.ID)

	// Worker-side terminal failure: claim, fail the item, park the message.
	msg, ok := router.TryClaim()
	if !ok {
		t.Fatalf("claim failed")
	}
	if _, err := mem.BeginAttempt(ctx, items[0].ID, msg.Attempt); err != nil {
		t.Fatalf("begin: %v", err)
	}
	router.DeadLetter(msg, "analyze: transient: backend unavailable")
	if err := mem.FailWorkItem(ctx, items[0].ID, msg.Attempt, "backend unavailable"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if _, err := mem.RecomputeJobStatus(ctx, job.ID); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	dead := svc.DeadLetters()
	if len(dead) != 1 || dead[0].LastError == "" {
		t.Fatalf("dead letters = %+v", dead)
	}
	if err := svc.RequeueDeadLetter(ctx, dead[0].ID, domain.LaneDeadLetter); !errors.Is(err, queue.ErrBadLane) {
		t.Fatalf("requeue into dead-letter lane err = %v", err)
	}
	if err := svc.RequeueDeadLetter(ctx, "missing", domain.LanePrimary); !errors.Is(err, queue.ErrUnknownMessage) {
		t.Fatalf("unknown requeue err = %v", err)
	}
	if err := svc.RequeueDeadLetter(ctx, dead[0].ID, domain.LanePriority); err != nil {
		t.Fatalf("requeue: %v", err)
	}

	// The requeued message must pass the duplicate guard: next attempt
	// number, reopened item, job no longer terminal.
	reclaimed, ok := router.TryClaim()
	if !ok || reclaimed.Lane != domain.LanePriority {
		t.Fatalf("reclaimed = %+v ok=%v", reclaimed, ok)
	}
	if reclaimed.Attempt != msg.Attempt+1 || reclaimed.LastError != "" {
		t.Fatalf("reclaimed attempt=%d lastError=%q", reclaimed.Attempt, reclaimed.LastError)
	}
	claimed, err := mem.BeginAttempt(ctx, items[0].ID, reclaimed.Attempt)
	if err != nil || !claimed {
		t.Fatalf("reopened item rejected the recovery attempt: claimed=%v err=%v", claimed, err)
	}
	got, _ := mem.GetJob(ctx, job.ID)
	if got.Status.Terminal() {
		t.Fatalf("job status = %q, recovery must reopen the job", got.Status)
	}
}

func TestRequeueSucceededItemStaysClosed(t *testing.T) {
	ctx := context.Background()
	svc, mem, router := newService(t)
	job, _ := svc.Submit(ctx, submission(false, 1))
	items, _ := mem.ListWorkItems(ctx, job.ID)

	msg, ok := router.TryClaim()
	if !ok {
		t.Fatalf("claim failed")
	}
	router.DeadLetter(msg, "stale park")
	if _, err := mem.BeginAttempt(ctx, items[0].ID, msg.Attempt); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := mem.CompleteWorkItem(ctx, items[0].ID, msg.Attempt); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if err := svc.RequeueDeadLetter(ctx, msg.ID, domain.LanePrimary); !errors.Is(err, domain.ErrDuplicateOperation) {
		t.Fatalf("requeue of succeeded item err = %v", err)
	}
	// The message goes back to the dead-letter lane for inspection.
	if got := len(svc.DeadLetters()); got != 1 {
		t.Fatalf("dead letters = %d after rejected requeue", got)
	}
	if got := router.Depth(domain.LanePrimary); got != 0 {
		t.Fatalf("primary depth = %d, nothing may be enqueued", got)
	}
}

func TestAttachManualEditsValidatesEnvelope(t *testing.T) {
	ctx := context.Background()
	svc, mem, _ := newService(t)
	record := &domain.GeneratedAssetRecord{ID: "r1", WorkItemID: "w1", JobID: "j1"}
	if err := mem.Save(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := svc.AttachManualEdits(ctx, "r1", []byte(`{"version":"1"}`)); !errors.Is(err, engine.ErrInvalidSubmission) {
		t.Fatalf("empty operations err = %v", err)
	}
	if err := svc.AttachManualEdits(ctx, "r1", []byte(`{"version":"1","operations":[{"op":"crop"}]}`)); err != nil {
		t.Fatalf("attach: %v", err)
	}
	stored, err := mem.GetByWorkItem(ctx, "w1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.ManualEdits) == 0 {
		t.Fatalf("overlay not stored")
	}
}
