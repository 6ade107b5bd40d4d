package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	requestsVal := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/healthz", "200"))
	if requestsVal < 1 {
		t.Errorf("expected http_requests_total >= 1, got %f", requestsVal)
	}

	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMetricsMiddleware_StatusAndFlush(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/mcp", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("POST", "/mcp", http.NoBody))

	if !rr.Flushed {
		t.Error("expected flush to reach the underlying writer")
	}
	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/mcp", "202")); v < 1 {
		t.Errorf("expected 202 to be counted, got %f", v)
	}
}

func TestObserveToolCall(t *testing.T) {
	before := testutil.ToFloat64(ToolCallsTotal.WithLabelValues("add_expense", "ok"))
	ObserveToolCall("add_expense", "ok", 3*time.Millisecond)
	after := testutil.ToFloat64(ToolCallsTotal.WithLabelValues("add_expense", "ok"))
	if after-before != 1 {
		t.Errorf("expected one call recorded, got %f", after-before)
	}
}
