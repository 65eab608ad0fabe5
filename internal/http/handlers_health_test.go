package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/webcloud7/wcs.pdfserver/internal/adapters/jobrunner"
	"github.com/webcloud7/wcs.pdfserver/internal/domain/model"
)

type fixedJobStats model.JobStats

func (f fixedJobStats) Stats() model.JobStats { return model.JobStats(f) }

type fixedWorkerStats jobrunner.PoolStats

func (f fixedWorkerStats) Stats() jobrunner.PoolStats { return jobrunner.PoolStats(f) }

func TestHealthHandlerGET(t *testing.T) {
	h := &HealthHandlers{
		Jobs:    fixedJobStats{Running: 1, Completed: 2, Failed: 3, Total: 6},
		Workers: fixedWorkerStats{Size: 10, Active: 1, Queued: 0},
	}
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	resp := rec.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %q", ct)
	}

	want := `{"status":"ok","jobs":{"running":1,"completed":2,"failed":3,"total":6},"workers":{"size":10,"active":1,"queued":0}}` + "\n"
	if body := rec.Body.String(); body != want {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestHealthHandlerWithoutStats(t *testing.T) {
	rec := httptest.NewRecorder()
	(&HealthHandlers{}).Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if body := rec.Body.String(); body != "{\"status\":\"ok\"}\n" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestHealthHandlerHEAD(t *testing.T) {
	req := httptest.NewRequest(http.MethodHead, "/healthz", nil)
	rec := httptest.NewRecorder()

	(&HealthHandlers{Jobs: fixedJobStats{}}).Health(rec, req)

	resp := rec.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %q", ct)
	}

	if bodyLen := rec.Body.Len(); bodyLen != 0 {
		t.Fatalf("expected empty body for HEAD request, got %d bytes", bodyLen)
	}
}
