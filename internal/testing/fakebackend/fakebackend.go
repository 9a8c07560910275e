// Package fakebackend is an httptest download service for exercising the
// monitor end to end without a real backend.
package fakebackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// RequestIDHeader is echoed on every response.
const RequestIDHeader = "X-Request-ID"

// Received describes one request the backend handled.
type Received struct {
	Method      string
	Path        string
	Query       string
	Traceparent string
	RequestID   string
	FileID      int64
}

type failure struct {
	status int
	body   string
}

// Backend is a fake download service. It is safe for concurrent use.
type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	received []Received
	failures []failure
	health   string
	storage  string

	seq atomic.Int64
}

// New starts a backend that reports healthy and completes every check. It is
// closed when t finishes.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{health: "healthy", storage: "ok"}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Close)
	return b
}

// Setenv points a monitor configured from the environment at b, with span
// export and error reporting off and no config file in reach.
func (b *Backend) Setenv(t testing.TB) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DELINEATE_API_BASE_URL", b.URL)
	t.Setenv("DELINEATE_OTEL_EXPORTER", "none")
	t.Setenv("DELINEATE_JAEGER_UI_URL", "http://jaeger.test:16686")
	t.Setenv("DELINEATE_DEBUG", "false")
	t.Setenv("SENTRY_DSN", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DELINEATE_LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "json")
}

// FailNext makes the next request fail with status and a structured error
// body. Calls queue up.
func (b *Backend) FailNext(status int, code, message string) {
	body, _ := json.Marshal(map[string]string{"error": code, "message": message})
	b.mu.Lock()
	b.failures = append(b.failures, failure{status: status, body: string(body)})
	b.mu.Unlock()
}

// FailNextRaw makes the next request fail with an arbitrary body.
func (b *Backend) FailNextRaw(status int, body string) {
	b.mu.Lock()
	b.failures = append(b.failures, failure{status: status, body: body})
	b.mu.Unlock()
}

// SetHealth changes what /health reports.
func (b *Backend) SetHealth(status, storage string) {
	b.mu.Lock()
	b.health, b.storage = status, storage
	b.mu.Unlock()
}

// Received returns a copy of the requests handled so far.
func (b *Backend) Received() []Received {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Received(nil), b.received...)
}

// Count returns the number of requests handled.
func (b *Backend) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.received)
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	n := b.seq.Add(1)
	rec := Received{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.RawQuery,
		Traceparent: r.Header.Get("traceparent"),
		RequestID:   fmt.Sprintf("req-%d", n),
	}
	var body struct {
		FileID int64 `json:"file_id"`
	}
	if r.Body != nil && r.Method == http.MethodPost {
		_ = json.NewDecoder(r.Body).Decode(&body)
		rec.FileID = body.FileID
	}

	b.mu.Lock()
	b.received = append(b.received, rec)
	var fail *failure
	if len(b.failures) > 0 {
		fail = &b.failures[0]
		b.failures = b.failures[1:]
	}
	health, storage := b.health, b.storage
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(RequestIDHeader, rec.RequestID)

	if fail != nil {
		w.WriteHeader(fail.status)
		_, _ = w.Write([]byte(fail.body))
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/health":
		status := http.StatusOK
		if health != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{
			"status":    health,
			"timestamp": "2025-06-01T12:00:00Z",
			"checks":    map[string]string{"storage": storage},
		})
	case r.Method == http.MethodPost && r.URL.Path == "/v1/download/check":
		if r.URL.Query().Get("sentry_test") == "true" {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "sentry_test",
				"message": "Sentry test error triggered",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"file_id": body.FileID,
			"status":  "completed",
			"message": "file is ready",
		})
	case r.Method == http.MethodPost && r.URL.Path == "/v1/download/start":
		writeJSON(w, http.StatusOK, map[string]any{
			"job_id":  fmt.Sprintf("job-%d", n),
			"file_id": body.FileID,
			"status":  "pending",
			"message": "download queued",
		})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "no such route"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
