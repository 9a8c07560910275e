package shared

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tombee/delineate-monitor/internal/apiclient"
	"github.com/tombee/delineate-monitor/internal/config"
	"github.com/tombee/delineate-monitor/internal/testing/fakebackend"
)

type runtimeFixture struct {
	backend   *fakebackend.Backend
	exporter  *tracetest.InMemoryExporter
	transport *sentry.MockTransport
	logs      *bytes.Buffer
	rt        *Runtime
}

func newRuntimeFixture(t *testing.T, opts RuntimeOptions) *runtimeFixture {
	t.Helper()

	f := &runtimeFixture{
		backend:   fakebackend.New(t),
		exporter:  tracetest.NewInMemoryExporter(),
		transport: &sentry.MockTransport{},
		logs:      &bytes.Buffer{},
	}

	cfg := config.Default()
	cfg.Backend.BaseURL = f.backend.URL
	cfg.Tracing.Exporter = "none"
	cfg.TraceViewer.BaseURL = "http://jaeger.test:16686/"
	cfg.Metrics.WindowSize = 10
	cfg.Log.Level = "warn"

	opts.LogOutput = f.logs
	opts.TracerOptions = append(opts.TracerOptions, sdktrace.WithSyncer(f.exporter))
	opts.ErrorTransport = f.transport

	rt, err := BuildRuntime(context.Background(), cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Shutdown(context.Background()) })
	f.rt = rt
	return f
}

func TestBuildRuntime_CallIsTracedAndCounted(t *testing.T) {
	f := newRuntimeFixture(t, RuntimeOptions{})

	resp, meta, err := f.rt.Client.DownloadCheck(context.Background(), apiclient.DownloadCheckRequest{FileID: 70000})
	require.NoError(t, err)
	assert.Equal(t, int64(70000), resp.FileID)

	spans := f.exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, meta.TraceID, spans[0].SpanContext.TraceID().String())

	received := f.backend.Received()
	require.Len(t, received, 1)
	assert.Contains(t, received[0].Traceparent, meta.TraceID)

	snap := f.rt.Aggregator.Snapshot()
	assert.Equal(t, int64(1), snap.Success)
	assert.Equal(t, 10, snap.WindowSize)
	assert.Equal(t, int64(0), f.rt.Collector.Inflight())
	assert.Empty(t, f.transport.Events())
}

func TestBuildRuntime_FailureIsReported(t *testing.T) {
	f := newRuntimeFixture(t, RuntimeOptions{})
	f.backend.FailNext(http.StatusInternalServerError, "storage_down", "storage is down")

	_, meta, err := f.rt.Client.DownloadCheck(context.Background(), apiclient.DownloadCheckRequest{FileID: 70000})
	require.Error(t, err)

	assert.Equal(t, int64(1), f.rt.Aggregator.Snapshot().Failure)

	events := f.transport.Events()
	require.Len(t, events, 1)
	assert.Equal(t, meta.TraceID, events[0].Tags["trace_id"])

	// warn level lets the executor's failure log through
	assert.Contains(t, f.logs.String(), "api call failed")
}

func TestBuildRuntime_VerboseLogsDebug(t *testing.T) {
	f := newRuntimeFixture(t, RuntimeOptions{Verbose: true})

	assert.Contains(t, f.logs.String(), "runtime initialized")
	assert.Contains(t, f.logs.String(), f.backend.URL)
}

func TestBuildRuntime_QuietDropsWarnings(t *testing.T) {
	f := newRuntimeFixture(t, RuntimeOptions{Quiet: true})
	f.backend.FailNext(http.StatusInternalServerError, "storage_down", "storage is down")

	_, _, err := f.rt.Client.Health(context.Background())
	require.Error(t, err)
	assert.NotContains(t, f.logs.String(), "api call failed")
}

func TestRuntime_ViewerURL(t *testing.T) {
	f := newRuntimeFixture(t, RuntimeOptions{})

	assert.Equal(t, "http://jaeger.test:16686/trace/abc123", f.rt.ViewerURL("abc123"))
	assert.Empty(t, f.rt.ViewerURL(""))

	f.rt.Config.TraceViewer.BaseURL = ""
	assert.Empty(t, f.rt.ViewerURL("abc123"))
}

func TestRuntime_Shutdown(t *testing.T) {
	f := newRuntimeFixture(t, RuntimeOptions{})

	_, _, err := f.rt.Client.Health(context.Background())
	require.NoError(t, err)
	assert.NoError(t, f.rt.Shutdown(context.Background()))
}

func TestRunWithRuntime_InvalidConfig(t *testing.T) {
	ResetFlagsForTest()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DELINEATE_API_BASE_URL", "not a url")

	called := false
	err := RunWithRuntime(context.Background(), func(ctx context.Context, rt *Runtime) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, ExitInvalidInput, ExitCode(err))
}
