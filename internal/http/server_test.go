package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "expensetracker/internal/log"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func quietLogger() *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Output = io.Discard
	return applog.New(cfg)
}

func newTestServer(t *testing.T, readiness Pinger, perMinute int) *Server {
	t.Helper()
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("mcp"))
	})
	srv := NewServer(":0", mcpHandler, readiness, Options{RequestsPerMinute: perMinute, Logger: quietLogger()})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func serve(srv *Server, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, fakePinger{}, 0)

	rr := serve(srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	rr = serve(srv, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ready", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestReadyFailsWhenStoreDown(t *testing.T) {
	srv := newTestServer(t, fakePinger{err: errors.New("database is locked")}, 0)

	rr := serve(srv, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, 0)
	serve(srv, http.MethodGet, "/healthz")

	rr := serve(srv, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "expensetracker_http_requests_total")
}

func TestMCPRouteIsRateLimited(t *testing.T) {
	srv := newTestServer(t, nil, 2)

	for i := 0; i < 2; i++ {
		rr := serve(srv, http.MethodPost, "/mcp")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "mcp", rr.Body.String())
	}

	rr := serve(srv, http.MethodPost, "/mcp")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// Health checks are not limited.
	assert.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/healthz").Code)
}

func TestRecovererReturns500(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	srv := NewServer(":0", panicky, nil, Options{Logger: quietLogger()})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := serve(srv, http.MethodPost, "/mcp")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(3)
	defer rl.stop()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("1.2.3.4"))
	}
	assert.False(t, rl.allow("1.2.3.4"))
	assert.True(t, rl.allow("5.6.7.8"), "clients are limited independently")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("1.2.3.4"))

	now = now.Add(staleClientAfter + time.Minute)
	rl.cleanupStaleEntries()
	rl.mu.Lock()
	assert.Empty(t, rl.clients)
	rl.mu.Unlock()

	rl.stop()
	rl.stop()
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"direct public peer", "203.0.113.7:5000", nil, "203.0.113.7"},
		{"public peer cannot spoof", "203.0.113.7:5000", map[string]string{"X-Forwarded-For": "1.1.1.1"}, "203.0.113.7"},
		{"trusted proxy forwarded for", "10.0.0.2:80", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.9"}, "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:80", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"trusted proxy garbage header", "192.168.1.1:80", map[string]string{"X-Forwarded-For": "not-an-ip"}, "192.168.1.1"},
		{"no port", "198.51.100.3", nil, "198.51.100.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, extractClientIP(req))
		})
	}
}

func TestIsSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"plain mcp call", http.MethodPost, "/mcp", "claude-desktop", false},
		{"path traversal", http.MethodGet, "/mcp/../etc/passwd", "", true},
		{"dotenv probe", http.MethodGet, "/.env", "", true},
		{"scanner agent", http.MethodPost, "/mcp", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/mcp", "", true},
		{"long url", http.MethodGet, "/mcp?q=" + strings.Repeat("a", 2100), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "http://localhost"+tt.target, nil)
			req.Header.Set("User-Agent", tt.agent)
			assert.Equal(t, tt.want, isSuspiciousRequest(req))
		})
	}
}
