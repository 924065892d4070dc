package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"creatflow/internal/adapter/repo"
	"creatflow/internal/domain"
	"creatflow/internal/engine"
	"creatflow/internal/http/handlers"
	"creatflow/internal/http/httpapi"
	"creatflow/internal/metrics"
	"creatflow/internal/queue"
)

type env struct {
	srv    *httptest.Server
	mem    *repo.Memory
	router *queue.Router
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mem := repo.NewMemory()
	router := queue.NewRouter(queue.Options{})
	svc := engine.NewService(mem, mem, router, zerolog.Nop())
	app := handlers.NewApp(svc, metrics.NewRecorder(router), zerolog.Nop())
	srv := httptest.NewServer(httpapi.NewRouter(app, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return &env{srv: srv, mem: mem, router: router}
}

func (e *env) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	resp, err := http.Post(e.srv.URL+path, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (e *env) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func validSubmission() map[string]any {
	return map[string]any{
		"project_id": "p1",
		"items": []map[string]any{
			{
				"asset_id":  "a1",
				"asset_ref": "assets/a1.png",
				"format_spec": map[string]any{
					"id": "square", "width": 500, "height": 500, "kind": "resizing",
				},
			},
		},
	}
}

func TestSubmitAndStatus(t *testing.T) {
	e := newEnv(t)

	resp := e.post(t, "/v1/jobs", validSubmission())
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	created := decode[map[string]any](t, resp)
	jobID, _ := created["job_id"].(string)
	if jobID == "" {
		t.Fatalf("no job_id in %v", created)
	}

	resp = e.get(t, "/v1/jobs/"+jobID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
	view := decode[engine.JobView](t, resp)
	if view.Job.ID != jobID || len(view.Items) != 1 {
		t.Fatalf("view = %+v", view)
	}
	if view.Items[0].State != domain.WorkItemPending {
		t.Fatalf("item state = %q", view.Items[0].State)
	}

	resp = e.get(t, "/v1/jobs/missing")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing job status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSubmitRejectsInvalidBody(t *testing.T) {
	e := newEnv(t)

	resp := e.post(t, "/v1/jobs", map[string]any{"project_id": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	if body["error"] == "" {
		t.Fatalf("no error message")
	}
}

func TestCancelEndpoint(t *testing.T) {
	e := newEnv(t)

	created := decode[map[string]any](t, e.post(t, "/v1/jobs", validSubmission()))
	jobID := created["job_id"].(string)

	resp := e.post(t, "/v1/jobs/"+jobID+"/cancel", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("cancel status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	view := decode[engine.JobView](t, e.get(t, "/v1/jobs/"+jobID))
	if !view.Job.CancelRequested {
		t.Fatalf("cancel flag not set")
	}
}

func TestDLQListAndRequeue(t *testing.T) {
	e := newEnv(t)

	created := decode[map[string]any](t, e.post(t, "/v1/jobs", validSubmission()))
	_ = created

	msg, ok := e.router.TryClaim()
	if !ok {
		t.Fatalf("claim failed")
	}
	e.router.DeadLetter(msg, "analyze: transient: backend unavailable")

	type dlqResp struct {
		Count    int                   `json:"count"`
		Messages []domain.QueueMessage `json:"messages"`
	}
	listed := decode[dlqResp](t, e.get(t, "/v1/dlq/"))
	if listed.Count != 1 || listed.Messages[0].LastError == "" {
		t.Fatalf("dlq = %+v", listed)
	}

	path := fmt.Sprintf("/v1/dlq/%s/requeue", listed.Messages[0].ID)
	resp := e.post(t, path, map[string]string{"lane": "priority"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("requeue status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = e.post(t, path, map[string]string{"lane": "priority"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second requeue status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = e.post(t, "/v1/dlq/whatever/requeue", map[string]string{"lane": "dead_letter"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad lane status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t)
	decode[map[string]any](t, e.post(t, "/v1/jobs", validSubmission()))

	snap := decode[metrics.Snapshot](t, e.get(t, "/v1/metrics/engine"))
	if snap.Lanes[string(domain.LanePrimary)] != 1 {
		t.Fatalf("metrics = %+v", snap)
	}
}

func TestAttachEditsEndpoint(t *testing.T) {
	e := newEnv(t)
	ctx := t.Context()

	record := &domain.GeneratedAssetRecord{ID: "r1", WorkItemID: "w1", JobID: "j1"}
	if err := e.mem.Save(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	resp := e.post(t, "/v1/assets/r1/edits", map[string]any{
		"version":    "1",
		"operations": []map[string]string{{"op": "crop"}},
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("attach status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = e.post(t, "/v1/assets/r1/edits", map[string]any{"version": "1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid overlay status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = e.post(t, "/v1/assets/missing/edits", map[string]any{
		"version":    "1",
		"operations": []map[string]string{{"op": "crop"}},
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing record status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}
