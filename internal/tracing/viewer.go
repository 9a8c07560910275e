package tracing

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// TraceIDFromContext returns the hex trace ID of the span in ctx, or "" when
// ctx carries no valid span.
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// ViewerURL builds the trace viewer link for traceID, e.g.
// "http://localhost:16686/trace/4bf92f3577b34da6a3ce929d0e0e4736".
// Without a trace ID the viewer's landing page is returned.
func ViewerURL(base, traceID string) string {
	base = strings.TrimRight(base, "/")
	if base == "" || traceID == "" {
		return base
	}
	return base + "/trace/" + traceID
}
