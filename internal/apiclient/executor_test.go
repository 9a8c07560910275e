package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/delineate-monitor/internal/errreport"
	"github.com/tombee/delineate-monitor/internal/metrics"
)

type harness struct {
	exporter   *tracetest.InMemoryExporter
	tp         *sdktrace.TracerProvider
	aggregator *metrics.Aggregator
	sentry     *sentry.MockTransport
	exec       *Executor
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	transport := &sentry.MockTransport{}
	reporter, err := errreport.New(errreport.Config{Transport: transport})
	require.NoError(t, err)

	agg := metrics.NewAggregator()

	all := append([]Option{
		WithTracerProvider(tp),
		WithPropagator(propagation.TraceContext{}),
		WithReporter(agg),
		WithErrorReporter(reporter),
	}, opts...)

	return &harness{
		exporter:   exporter,
		tp:         tp,
		aggregator: agg,
		sentry:     transport,
		exec:       NewExecutor(&http.Client{Timeout: 5 * time.Second}, all...),
	}
}

func (h *harness) onlySpan(t *testing.T) tracetest.SpanStub {
	t.Helper()
	spans := h.exporter.GetSpans()
	require.Len(t, spans, 1)
	return spans[0]
}

func attr(span tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestExecutor_Success(t *testing.T) {
	var gotTraceparent, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTraceparent = r.Header.Get("traceparent")
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("X-Request-ID", "req-123")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"healthy","timestamp":"2024-01-01T00:00:00Z","checks":{"storage":"ok"}}`)
	}))
	defer srv.Close()

	h := newHarness(t)
	url := srv.URL + "/health"

	health, meta, err := Call[HealthResponse](context.Background(), h.exec, Request{URL: url})
	require.NoError(t, err)

	assert.True(t, health.Healthy())
	assert.Equal(t, "ok", health.Checks.Storage)
	assert.Equal(t, http.StatusOK, meta.StatusCode)
	assert.Equal(t, "req-123", meta.RequestID)
	assert.Len(t, meta.TraceID, 32)
	assert.Equal(t, "application/json", gotContentType)

	span := h.onlySpan(t)
	assert.Equal(t, "GET "+url, span.Name)
	assert.Equal(t, trace.SpanKindClient, span.SpanKind)
	assert.Equal(t, codes.Ok, span.Status.Code)
	assert.Equal(t, meta.TraceID, span.SpanContext.TraceID().String())
	assert.Contains(t, gotTraceparent, meta.TraceID, "traceparent must carry the call's trace")

	status, ok := attr(span, "http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(200), status.AsInt64())
	requestID, ok := attr(span, "request.id")
	require.True(t, ok)
	assert.Equal(t, "req-123", requestID.AsString())
	method, _ := attr(span, "http.method")
	assert.Equal(t, "GET", method.AsString())
	_, ok = attr(span, "http.response_time_ms")
	assert.True(t, ok)

	s := h.aggregator.Snapshot()
	assert.Equal(t, int64(1), s.Total)
	assert.Equal(t, int64(1), s.Success)
	assert.Equal(t, int64(0), s.Failure)
	assert.Empty(t, h.sentry.Events())
}

func TestExecutor_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", "req-500")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"x","message":"y","details":{"file_id":7}}`)
	}))
	defer srv.Close()

	h := newHarness(t)

	meta, err := h.exec.Do(context.Background(), Request{Method: http.MethodPost, URL: srv.URL + "/v1/download/check", Body: map[string]int{"file_id": 7}}, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "x", apiErr.Body.Error)
	assert.Equal(t, "y", apiErr.Body.Message)
	assert.JSONEq(t, `{"file_id":7}`, string(apiErr.Body.Details))
	assert.Equal(t, "y", apiErr.Error())
	assert.Equal(t, meta.TraceID, apiErr.TraceID)
	assert.Equal(t, "req-500", apiErr.RequestID)
	assert.True(t, apiErr.IsRetryable())

	span := h.onlySpan(t)
	assert.Equal(t, codes.Error, span.Status.Code)
	assert.Equal(t, "y", span.Status.Description)
	require.NotEmpty(t, span.Events)
	assert.Equal(t, "exception", span.Events[0].Name)

	s := h.aggregator.Snapshot()
	assert.Equal(t, int64(1), s.Failure)
	assert.Equal(t, int64(0), s.Success)

	events := h.sentry.Events()
	require.Len(t, events, 1)
	assert.Equal(t, meta.TraceID, events[0].Tags["trace_id"])
	assert.Equal(t, "req-500", events[0].Tags["request_id"])
	assert.Equal(t, "500", events[0].Tags["status_code"])
}

func TestExecutor_APIErrorUnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	}))
	defer srv.Close()

	h := newHarness(t)

	_, err := h.exec.Do(context.Background(), Request{URL: srv.URL}, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "unknown_error", apiErr.Body.Error)
	assert.Equal(t, "Unknown error", apiErr.Body.Message)
	assert.Empty(t, apiErr.RequestID)
}

func TestExecutor_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL + "/health"
	srv.Close()

	h := newHarness(t)

	meta, err := h.exec.Do(context.Background(), Request{URL: url}, nil)
	require.Error(t, err)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, meta.TraceID, transportErr.TraceID)
	assert.Equal(t, 0, meta.StatusCode)
	assert.Equal(t, meta.TraceID, TraceIDOf(err))

	span := h.onlySpan(t)
	assert.Equal(t, codes.Error, span.Status.Code)
	_, hasStatus := attr(span, "http.status_code")
	assert.False(t, hasStatus)

	s := h.aggregator.Snapshot()
	assert.Equal(t, int64(1), s.Failure)
	assert.Equal(t, 1, s.WindowLen)

	events := h.sentry.Events()
	require.Len(t, events, 1)
	assert.Equal(t, meta.TraceID, events[0].Tags["trace_id"])
	assert.NotContains(t, events[0].Tags, "status_code")
}

func TestExecutor_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "not json")
	}))
	defer srv.Close()

	h := newHarness(t)

	_, _, err := Call[HealthResponse](context.Background(), h.exec, Request{URL: srv.URL})

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, http.StatusOK, decodeErr.StatusCode)
	assert.Equal(t, codes.Error, h.onlySpan(t).Status.Code)
	assert.Equal(t, int64(1), h.aggregator.Snapshot().Failure)
}

func TestExecutor_InvalidURLIsReportedOnce(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec.Do(context.Background(), Request{URL: "http://bad host/"}, nil)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Len(t, h.exporter.GetSpans(), 1)
	assert.Equal(t, int64(1), h.aggregator.Snapshot().Failure)
}

func TestExecutor_CallerHeadersWin(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	h := newHarness(t)

	header := http.Header{}
	header.Set("Content-Type", "text/plain")
	header.Set("X-Debug", "1")

	_, err := h.exec.Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   []byte("raw"),
		Header: header,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "text/plain", got.Get("Content-Type"))
	assert.Equal(t, "1", got.Get("X-Debug"))
	assert.NotEmpty(t, got.Get("traceparent"))
}

func TestExecutor_NestsUnderParentSpan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	h := newHarness(t)

	ctx, parent := h.tp.Tracer("test").Start(context.Background(), "user action")
	meta, err := h.exec.Do(ctx, Request{URL: srv.URL}, nil)
	require.NoError(t, err)
	parent.End()

	spans := h.exporter.GetSpans()
	require.Len(t, spans, 2)
	child := spans[0]

	assert.Equal(t, parent.SpanContext().TraceID(), child.SpanContext.TraceID())
	assert.Equal(t, parent.SpanContext().SpanID(), child.Parent.SpanID())
	assert.Equal(t, parent.SpanContext().TraceID().String(), meta.TraceID)

	traceAttr, ok := attr(child, "trace.id")
	require.True(t, ok)
	assert.Equal(t, meta.TraceID, traceAttr.AsString())
}

func TestExecutor_ConcurrentCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"x","message":"y"}`)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}))
	defer srv.Close()

	h := newHarness(t)

	var wg sync.WaitGroup
	metas := make([]Meta, 2)
	for i, path := range []string{"/ok", "/fail"} {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			metas[i], _ = h.exec.Do(context.Background(), Request{URL: srv.URL + path}, nil)
		}(i, path)
	}
	wg.Wait()

	s := h.aggregator.Snapshot()
	assert.Equal(t, int64(2), s.Total)
	assert.Equal(t, int64(1), s.Success)
	assert.Equal(t, int64(1), s.Failure)
	assert.Len(t, h.aggregator.Window(), 2)

	assert.Len(t, h.exporter.GetSpans(), 2)
	assert.NotEqual(t, metas[0].TraceID, metas[1].TraceID)
}

func TestExecutor_Collector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())
	collector, err := metrics.NewCollector(mp)
	require.NoError(t, err)

	h := newHarness(t, WithCollector(collector))

	_, err = h.exec.Do(context.Background(), Request{URL: srv.URL + "/v1/download/check?sentry_test=true"}, nil)
	require.Error(t, err)
	assert.Equal(t, int64(0), collector.Inflight())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "delineate_api_requests_total" {
				continue
			}
			sum := m.Data.(metricdata.Sum[int64])
			require.Len(t, sum.DataPoints, 1)
			endpoint, _ := sum.DataPoints[0].Attributes.Value("endpoint")
			outcome, _ := sum.DataPoints[0].Attributes.Value("outcome")
			assert.Equal(t, "/v1/download/check", endpoint.AsString())
			assert.Equal(t, metrics.OutcomeAPIError, outcome.AsString())
			found = true
		}
	}
	assert.True(t, found)
}

func TestExecutor_IgnoresCallerCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"healthy"}`)
	}))
	defer srv.Close()

	h := newHarness(t)

	ctx, parent := h.tp.Tracer("test").Start(context.Background(), "user action")
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	health, meta, err := Call[HealthResponse](ctx, h.exec, Request{URL: srv.URL})
	parent.End()
	require.NoError(t, err)
	assert.True(t, health.Healthy())
	assert.Equal(t, parent.SpanContext().TraceID().String(), meta.TraceID)
	assert.Equal(t, int64(1), h.aggregator.Snapshot().Success)
}

func TestExecutor_ClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	h := newHarness(t)
	exec := NewExecutor(&http.Client{Timeout: 20 * time.Millisecond},
		WithTracerProvider(h.tp), WithReporter(h.aggregator))

	meta, err := exec.Do(context.Background(), Request{URL: srv.URL}, nil)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.GreaterOrEqual(t, meta.Latency, 20*time.Millisecond)
	assert.Equal(t, int64(1), h.aggregator.Snapshot().Failure)
}

func TestRequest_BuildEncodesBody(t *testing.T) {
	req, err := Request{Method: http.MethodPost, URL: "http://localhost:3000/v1/download/start", Body: DownloadStartRequest{FileID: 70000}}.build(context.Background())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(req.Body).Decode(&decoded))
	assert.Equal(t, float64(70000), decoded["file_id"])
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
}
