// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracing

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestProvider(t *testing.T, cfg Config) (*Provider, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	provider, err := NewProvider(context.Background(), cfg, sdktrace.WithSyncer(exporter))
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	return provider, exporter
}

func TestNewProvider_LocalOnlyStillAssignsTraceIDs(t *testing.T) {
	provider, err := NewProvider(context.Background(), DefaultConfig())
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	assert.False(t, provider.Exporting())

	ctx, span := provider.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.Len(t, traceID, 32)
}

func TestNewProvider_RecordsSpans(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServiceName = "monitor-test"
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "test"
	provider, exporter := newTestProvider(t, cfg)

	ctx, parent := provider.Tracer("test").Start(context.Background(), "parent")
	_, child := provider.Tracer("test").Start(ctx, "child")
	child.End()
	parent.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "child", spans[0].Name)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())

	var serviceName string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			serviceName = kv.Value.AsString()
		}
	}
	assert.Equal(t, "monitor-test", serviceName)
}

func TestNewProvider_ConsoleExporter(t *testing.T) {
	var buf bytes.Buffer
	orig := ConsoleWriter
	ConsoleWriter = &buf
	defer func() { ConsoleWriter = orig }()

	cfg := DefaultConfig()
	cfg.Exporter.Type = ExporterConsole
	provider, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, provider.Exporting())

	_, span := provider.Tracer("test").Start(context.Background(), "console-span")
	span.End()
	require.NoError(t, provider.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "console-span")
}

func TestNewProvider_BadExporterDoesNotFailStartup(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exporter.Endpoint = "ftp://collector"

	provider, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	assert.False(t, provider.Exporting())
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sampling.Rate = 2

	_, err := NewProvider(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sampling rate")
}

func TestProvider_MetricsHandler(t *testing.T) {
	provider, _ := newTestProvider(t, DefaultConfig())

	counter, err := provider.MeterProvider().Meter("test").Int64Counter("test_events_total",
		metric.WithDescription("events"))
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	srv := httptest.NewServer(provider.MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "test_events_total")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Exporter.Type = "zipkin"
	assert.ErrorContains(t, cfg.Validate(), "unknown exporter type")

	cfg = DefaultConfig()
	cfg.ServiceName = ""
	assert.ErrorContains(t, cfg.Validate(), "service name")
}

func TestExporterConfig_Enabled(t *testing.T) {
	assert.False(t, ExporterConfig{Type: ExporterOTLPHTTP}.Enabled())
	assert.True(t, ExporterConfig{Type: ExporterOTLPHTTP, Endpoint: "http://c:4318"}.Enabled())
	assert.True(t, ExporterConfig{Type: ExporterConsole}.Enabled())
	assert.False(t, ExporterConfig{Type: ExporterNone, Endpoint: "http://c:4318"}.Enabled())
}

func TestNewSampler(t *testing.T) {
	assert.Contains(t, NewSampler(SamplingConfig{Rate: 1}).Description(), "AlwaysOnSampler")
	assert.Contains(t, NewSampler(SamplingConfig{Rate: 0}).Description(), "AlwaysOffSampler")
	assert.Contains(t, NewSampler(SamplingConfig{Rate: 0.25}).Description(), "TraceIDRatioBased{0.25}")
}
