package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/config"
	"github.com/huntworks/hunt/internal/pipeline"
)

// newTestServer builds a server with nil collaborators. Only routes that
// validate input before touching the store are exercised here; storage-backed
// paths are covered by the end-to-end environment.
func newTestServer() *Server {
	cfg := &config.Config{Pipeline: &config.PipelineConfig{IntervalHours: 6}}
	return New(nil, nil, pipeline.NewScheduler(nil, zap.NewNop()), nil, nil, cfg, zap.NewNop())
}

func decodeDetail(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("error payload is not {detail}: %s", body)
	}
	return payload.Detail
}

func TestHealth(t *testing.T) {
	t.Parallel()

	resp, err := newTestServer().App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health returned %d", resp.StatusCode)
	}
}

func TestInvalidJobIDReturns400Detail(t *testing.T) {
	t.Parallel()

	resp, err := newTestServer().App().Test(httptest.NewRequest(http.MethodGet, "/api/jobs/not-a-uuid", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if detail := decodeDetail(t, resp); detail == "" {
		t.Fatal("expected a detail message")
	}
}

func TestInvalidPaginationRejected(t *testing.T) {
	t.Parallel()

	resp, err := newTestServer().App().Test(httptest.NewRequest(http.MethodGet, "/api/jobs?page=0", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestClickRequiresCandidateID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/7b1e8a8e-1111-4222-8333-444455556666/click", nil)
	resp, err := newTestServer().App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSchedulerIntervalValidation(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/scheduler/start?interval_hours=0", nil)
	resp, err := newTestServer().App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSchedulerStartStopEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer()

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodPost, "/api/admin/scheduler/start?interval_hours=6", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start returned %d", resp.StatusCode)
	}

	var status pipeline.SchedulerStatus
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if !status.Running || status.IntervalHours != 6 {
		t.Fatalf("unexpected status %+v", status)
	}

	resp, err = srv.App().Test(httptest.NewRequest(http.MethodPost, "/api/admin/scheduler/stop", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status.Running {
		t.Fatal("scheduler should be stopped")
	}
}

func TestAnalyticsDaysValidation(t *testing.T) {
	t.Parallel()

	resp, err := newTestServer().App().Test(httptest.NewRequest(http.MethodGet, "/api/admin/analytics?days=0", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
