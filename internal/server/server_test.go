package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/me/durq/internal/config"
	"github.com/me/durq/internal/queue"
	"github.com/me/durq/internal/region"
	"github.com/me/durq/internal/runtime"
	"github.com/me/durq/internal/scheduler"
	"github.com/me/durq/internal/units"
	"github.com/me/durq/pkg/task"
)

// testServer wires a full in-memory instance: region manager, durable
// queue, built-in units, runtime, engine, and the HTTP surface.
func testServer(t *testing.T) (*httptest.Server, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()

	var unitLog bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	unitLogger := slog.New(slog.NewTextHandler(&unitLog, nil))

	mgr, err := region.NewManager(":memory:", 0, logger)
	if err != nil {
		t.Fatalf("open manager: %v", err)
	}
	if err := mgr.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })

	cfg := config.DefaultServerConfig()
	reg, err := mgr.Open(ctx, cfg.QueueRegion)
	if err != nil {
		t.Fatalf("open region: %v", err)
	}

	codec := task.NewCodec()
	units.Register(units.Deps{Codec: codec, Logger: unitLogger})

	q := queue.NewDurable(reg, codec, logger)

	rt := runtime.New(cfg.RuntimeDepth, logger)
	go rt.Start(ctx)
	t.Cleanup(func() { rt.Stop() })

	engine := scheduler.New(q, rt, scheduler.DefaultConfig(), logger)
	srv := httptest.NewServer(New(cfg, q, engine, codec, logger).Handler())
	t.Cleanup(srv.Close)
	return srv, &unitLog
}

func doJSON(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *APIError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data := map[string]any{}
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	if envelope.Error != nil {
		data["error_code"] = envelope.Error.Code
	}
	return resp.StatusCode, data
}

func TestAddRunQueueRoundTrip(t *testing.T) {
	srv, unitLog := testServer(t)

	status, data := doJSON(t, http.MethodPost, srv.URL+"/api/v1/tasks",
		`{"variant":"sync","kind":"emit","payload":{"message":"over-http"}}`)
	if status != http.StatusCreated {
		t.Fatalf("add task status = %d, want 201", status)
	}
	if data["depth"].(float64) != 1 {
		t.Fatalf("depth after add = %v, want 1", data["depth"])
	}

	status, data = doJSON(t, http.MethodGet, srv.URL+"/api/v1/queue", "")
	if status != http.StatusOK {
		t.Fatalf("queue status = %d, want 200", status)
	}
	if data["depth"].(float64) != 1 || data["total"].(float64) != 1 {
		t.Fatalf("queue = %v, want depth 1 total 1", data)
	}

	status, data = doJSON(t, http.MethodPost, srv.URL+"/api/v1/run", "")
	if status != http.StatusOK {
		t.Fatalf("run status = %d, want 200", status)
	}
	if data["depth"].(float64) != 0 {
		t.Fatalf("depth after drain = %v, want 0", data["depth"])
	}
	if !strings.Contains(unitLog.String(), "over-http") {
		t.Fatalf("unit log %q missing emitted message", unitLog.String())
	}
}

func TestAddTaskRejectsBadBodies(t *testing.T) {
	srv, _ := testServer(t)

	status, data := doJSON(t, http.MethodPost, srv.URL+"/api/v1/tasks", "{not json")
	if status != http.StatusBadRequest || data["error_code"] != "bad_request" {
		t.Fatalf("status = %d data = %v, want 400 bad_request", status, data)
	}

	status, data = doJSON(t, http.MethodPost, srv.URL+"/api/v1/tasks",
		`{"variant":"sync","kind":"no-such-unit"}`)
	if status != http.StatusUnprocessableEntity || data["error_code"] != "unknown_task" {
		t.Fatalf("status = %d data = %v, want 422 unknown_task", status, data)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)

	status, data := doJSON(t, http.MethodGet, srv.URL+"/api/v1/health", "")
	if status != http.StatusOK {
		t.Fatalf("health status = %d, want 200", status)
	}
	if data["status"] != "healthy" {
		t.Fatalf("health = %v, want healthy", data)
	}
	if data["region"] != "pending_tasks" {
		t.Fatalf("region = %v, want pending_tasks", data["region"])
	}
}

func TestRunDrainsSyncChain(t *testing.T) {
	srv, unitLog := testServer(t)

	body := `{"variant":"sync","kind":"emit","payload":{"message":"one",
		"next":{"variant":"sync","kind":"emit","payload":{"message":"two"}}}}`
	if status, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/tasks", body); status != http.StatusCreated {
		t.Fatalf("add task failed with status %d", status)
	}
	if status, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/run", ""); status != http.StatusOK {
		t.Fatalf("run failed with status %d", status)
	}

	out := unitLog.String()
	if !strings.Contains(out, "one") || !strings.Contains(out, "two") {
		t.Fatalf("unit log %q missing chain messages", out)
	}
}
