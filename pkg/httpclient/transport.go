package httpclient

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/tombee/delineate-monitor/internal/tracing"
)

// loggingTransport sets the User-Agent and logs every round trip.
type loggingTransport struct {
	base      http.RoundTripper
	userAgent string
}

func newLoggingTransport(base http.RoundTripper, userAgent string) *loggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &loggingTransport{
		base:      base,
		userAgent: userAgent,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	if req.Header.Get("User-Agent") == "" {
		// RoundTrippers must not modify the caller's request
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start).Milliseconds()

	attrs := []any{
		"method", req.Method,
		"url", sanitizeURL(req.URL),
		"duration_ms", duration,
	}
	if traceID := tracing.TraceIDFromContext(req.Context()); traceID != "" {
		attrs = append(attrs, "trace_id", traceID)
	}

	if err != nil {
		slog.WarnContext(req.Context(), "http request failed", append(attrs, "error", err.Error())...)
		return resp, err
	}

	attrs = append(attrs, "status", resp.StatusCode)
	if requestID := tracing.RequestIDFromResponse(resp); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}

	level := slog.LevelDebug
	if resp.StatusCode >= 400 {
		level = slog.LevelWarn
	}
	slog.Log(req.Context(), level, "http request", attrs...)

	return resp, nil
}
