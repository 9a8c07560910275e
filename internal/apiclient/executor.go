package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/delineate-monitor/internal/errreport"
	"github.com/tombee/delineate-monitor/internal/metrics"
	"github.com/tombee/delineate-monitor/internal/tracing"
)

const (
	instrumentationName = "github.com/tombee/delineate-monitor/internal/apiclient"

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 1 << 20
)

// Executor runs traced backend calls. It is safe for concurrent use.
type Executor struct {
	client     *http.Client
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	reporter   metrics.Reporter
	collector  *metrics.Collector
	errors     errreport.Reporter
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithTracerProvider sets the provider spans are created from. Defaults to
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Executor) { e.tracer = tp.Tracer(instrumentationName) }
}

// WithPropagator sets the propagator used to inject trace headers. Defaults
// to the global propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(e *Executor) { e.propagator = p }
}

// WithReporter sets the sink that receives one outcome per call.
func WithReporter(r metrics.Reporter) Option {
	return func(e *Executor) { e.reporter = r }
}

// WithCollector records calls on OpenTelemetry instruments as well.
func WithCollector(c *metrics.Collector) Option {
	return func(e *Executor) { e.collector = c }
}

// WithErrorReporter sets where failures are forwarded.
func WithErrorReporter(r errreport.Reporter) Option {
	return func(e *Executor) { e.errors = r }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor creates an executor sending requests with client.
func NewExecutor(client *http.Client, opts ...Option) *Executor {
	if client == nil {
		client = http.DefaultClient
	}
	e := &Executor{
		client: client,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}
	if e.propagator == nil {
		e.propagator = otel.GetTextMapPropagator()
	}
	if e.errors == nil {
		e.errors = errreport.Nop{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// call tracks one in-flight request so that every exit path funnels through
// finish exactly once.
type call struct {
	method  string
	url     string
	span    trace.Span
	meta    Meta
	outcome string
	body    any
}

// Do performs req inside a client span and decodes a 2xx JSON body into out
// (skipped when out is nil). The span is a child of any span in ctx.
//
// Do never retries and ignores cancellation of ctx. It returns *APIError,
// *TransportError or *DecodeError on failure; Meta is populated in every case.
func (e *Executor) Do(ctx context.Context, req Request, out any) (meta Meta, err error) {
	c := &call{method: req.method(), url: req.URL, outcome: metrics.OutcomeSuccess}

	ctx, c.span = e.tracer.Start(ctx, c.method+" "+c.url,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.url", c.url),
			attribute.String("http.method", c.method),
		),
	)
	c.meta.TraceID = tracing.TraceIDFromContext(ctx)
	if c.meta.TraceID != "" {
		c.span.SetAttributes(attribute.String("trace.id", c.meta.TraceID))
	}

	if e.collector != nil {
		e.collector.RequestStarted()
	}
	defer func() {
		e.finish(ctx, c, err)
		meta = c.meta
	}()

	// Once issued a call runs to completion; only the client timeout ends it
	httpReq, err := req.build(context.WithoutCancel(ctx))
	if err != nil {
		c.outcome = metrics.OutcomeTransportError
		return c.meta, &TransportError{Method: c.method, URL: c.url, TraceID: c.meta.TraceID, Err: err}
	}
	e.propagator.Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	start := e.now()
	resp, err := e.client.Do(httpReq)
	c.meta.Latency = e.now().Sub(start)
	if err != nil {
		c.outcome = metrics.OutcomeTransportError
		return c.meta, &TransportError{
			Method:  c.method,
			URL:     c.url,
			TraceID: c.meta.TraceID,
			Latency: c.meta.Latency,
			Err:     err,
		}
	}
	defer func() {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	c.meta.StatusCode = resp.StatusCode
	c.meta.RequestID = tracing.RequestIDFromResponse(resp)
	c.span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode),
		attribute.Float64("http.response_time_ms", float64(c.meta.Latency)/float64(time.Millisecond)),
	)
	if c.meta.RequestID != "" {
		c.span.SetAttributes(attribute.String("request.id", c.meta.RequestID))
	}

	body := io.LimitReader(resp.Body, maxBodyBytes)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody := unknownErrorBody()
		if raw, readErr := io.ReadAll(body); readErr == nil {
			var parsed ErrorBody
			if json.Unmarshal(raw, &parsed) == nil {
				errBody = parsed
			}
		}
		c.outcome = metrics.OutcomeAPIError
		c.body = errBody
		return c.meta, &APIError{
			StatusCode: resp.StatusCode,
			Body:       errBody,
			TraceID:    c.meta.TraceID,
			RequestID:  c.meta.RequestID,
		}
	}

	if out != nil {
		if decodeErr := json.NewDecoder(body).Decode(out); decodeErr != nil {
			c.outcome = metrics.OutcomeDecodeError
			return c.meta, &DecodeError{
				StatusCode: resp.StatusCode,
				TraceID:    c.meta.TraceID,
				RequestID:  c.meta.RequestID,
				Err:        decodeErr,
			}
		}
	}

	return c.meta, nil
}

// finish closes the span, reports the outcome and forwards failures.
func (e *Executor) finish(ctx context.Context, c *call, err error) {
	if err != nil {
		c.span.SetStatus(codes.Error, err.Error())
		c.span.RecordError(err)
	} else {
		c.span.SetStatus(codes.Ok, "")
	}
	c.span.End()

	if e.reporter != nil {
		e.reporter.Report(err == nil, c.meta.Latency)
	}
	if e.collector != nil {
		e.collector.RecordRequest(ctx, c.method, endpointLabel(c.url), c.outcome, c.meta.Latency)
	}

	attrs := []any{
		"method", c.method,
		"url", c.url,
		"outcome", c.outcome,
		"duration_ms", c.meta.Latency.Milliseconds(),
		"trace_id", c.meta.TraceID,
	}
	if c.meta.StatusCode != 0 {
		attrs = append(attrs, "status", c.meta.StatusCode)
	}
	if c.meta.RequestID != "" {
		attrs = append(attrs, "request_id", c.meta.RequestID)
	}

	if err == nil {
		e.logger.DebugContext(ctx, "api call succeeded", attrs...)
		return
	}

	e.logger.WarnContext(ctx, "api call failed", append(attrs, "error", err.Error())...)
	e.errors.Capture(ctx, err, errreport.Tags{
		TraceID:    c.meta.TraceID,
		RequestID:  c.meta.RequestID,
		StatusCode: c.meta.StatusCode,
		Method:     c.method,
		URL:        c.url,
		Body:       c.body,
	})
}

// endpointLabel keeps metric cardinality bounded by dropping host and query.
func endpointLabel(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// Call performs req and decodes a successful response into a T.
func Call[T any](ctx context.Context, e *Executor, req Request) (T, Meta, error) {
	var out T
	meta, err := e.Do(ctx, req, &out)
	return out, meta, err
}

// IsTimeout reports whether err is a transport failure caused by a deadline.
func IsTimeout(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	if errors.Is(te.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(te.Err, &netErr) && netErr.Timeout()
}
