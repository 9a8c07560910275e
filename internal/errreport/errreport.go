// Package errreport forwards failed backend calls to an error-reporting
// service, tagged so that each report can be matched to its trace.
package errreport

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tombee/delineate-monitor/internal/redact"
)

// Tags describe the call that failed.
type Tags struct {
	TraceID    string
	RequestID  string
	StatusCode int
	Method     string
	URL        string

	// Body is the structured error payload returned by the backend, if any.
	Body any
}

// Reporter receives failures from the request executor.
type Reporter interface {
	Capture(ctx context.Context, err error, tags Tags)
	Flush(timeout time.Duration) bool
}

// Config configures the Sentry reporter.
type Config struct {
	DSN         string
	Environment string
	Release     string
	Debug       bool

	// Transport overrides the Sentry transport. Tests use sentry.MockTransport.
	Transport sentry.Transport
}

// New returns a Sentry-backed reporter, or a no-op reporter when no DSN and
// no transport are configured.
func New(cfg Config) (Reporter, error) {
	if cfg.DSN == "" && cfg.Transport == nil {
		slog.Debug("error reporting disabled: no DSN configured")
		return Nop{}, nil
	}

	redactor := redact.New()
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		Debug:       cfg.Debug,
		Transport:   cfg.Transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return scrub(redactor, event)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry client: %w", err)
	}

	return &SentryReporter{hub: sentry.NewHub(client, sentry.NewScope()), redactor: redactor}, nil
}

// Nop discards every report.
type Nop struct{}

func (Nop) Capture(context.Context, error, Tags) {}

func (Nop) Flush(time.Duration) bool { return true }

// SentryReporter sends each failure as a Sentry exception event.
type SentryReporter struct {
	hub      *sentry.Hub
	redactor *redact.Redactor
}

// Capture reports err with trace_id, request_id and status_code tags. Tags
// with no value are omitted.
func (r *SentryReporter) Capture(_ context.Context, err error, tags Tags) {
	if err == nil {
		return
	}

	r.hub.WithScope(func(scope *sentry.Scope) {
		if tags.TraceID != "" {
			scope.SetTag("trace_id", tags.TraceID)
		}
		if tags.RequestID != "" {
			scope.SetTag("request_id", tags.RequestID)
		}
		if tags.StatusCode > 0 {
			scope.SetTag("status_code", strconv.Itoa(tags.StatusCode))
		}

		request := sentry.Context{}
		if tags.Method != "" {
			request["method"] = tags.Method
		}
		if tags.URL != "" {
			request["url"] = r.redactor.URL(tags.URL)
		}
		if tags.Body != nil {
			request["error_response"] = r.redactor.Value(tags.Body)
		}
		if len(request) > 0 {
			scope.SetContext("request", request)
		}

		r.hub.CaptureException(err)
	})
}

// Flush waits up to timeout for queued events to be delivered.
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}

// scrub masks secrets in the free-text parts of an event. Tags and request
// context are redacted when the scope is built.
func scrub(r *redact.Redactor, event *sentry.Event) *sentry.Event {
	event.Message = r.String(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = r.String(event.Exception[i].Value)
	}
	return event
}
