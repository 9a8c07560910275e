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
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Provider owns the tracer and meter providers for the process.
type Provider struct {
	tp        *sdktrace.TracerProvider
	mp        *metric.MeterProvider
	registry  *prometheus.Registry
	exporting bool
}

// ConsoleWriter is where the console exporter writes. Tests may replace it.
var ConsoleWriter io.Writer = os.Stderr

// NewProvider creates the tracer provider described by cfg and installs it,
// together with the W3C propagator, as the global OpenTelemetry provider.
//
// Extra options are applied after the configured sampler and exporter, so
// callers (tests in particular) can add a syncer or override sampling.
func NewProvider(ctx context.Context, cfg Config, opts ...sdktrace.TracerProviderOption) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracing config: %w", err)
	}

	kvs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	}
	if cfg.Environment != "" {
		kvs = append(kvs, semconv.DeploymentEnvironment(cfg.Environment))
	}
	// Empty schema URL avoids conflicts when merging with the default resource
	serviceAttrs := resource.NewWithAttributes("", kvs...)
	res, err := resource.Merge(resource.Default(), serviceAttrs)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	allOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(NewSampler(cfg.Sampling)),
	}
	processor := newBatchProcessor(ctx, cfg, ConsoleWriter)
	if processor != nil {
		allOpts = append(allOpts, sdktrace.WithSpanProcessor(processor))
	}
	allOpts = append(allOpts, opts...)

	tp := sdktrace.NewTracerProvider(allOpts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(W3CPropagator())

	// A private registry keeps repeated providers (tests, CLI re-runs) from
	// colliding on the default Prometheus registerer.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	promExporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(promExporter),
	)

	return &Provider{
		tp:        tp,
		mp:        mp,
		registry:  registry,
		exporting: processor != nil,
	}, nil
}

// Tracer returns a tracer for the given instrumentation scope.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tp.Tracer(name)
}

// TracerProvider returns the underlying tracer provider.
func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.tp
}

// MeterProvider returns the meter provider backing the Prometheus endpoint.
func (p *Provider) MeterProvider() otelmetric.MeterProvider {
	return p.mp
}

// Exporting reports whether spans leave the process.
func (p *Provider) Exporting() bool {
	return p.exporting
}

// MetricsHandler returns an HTTP handler serving the Prometheus exposition
// format for this provider's registry.
func (p *Provider) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// ForceFlush exports all pending spans synchronously.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if err := p.tp.ForceFlush(ctx); err != nil {
		return err
	}
	return p.mp.ForceFlush(ctx)
}

// Shutdown flushes any pending spans and releases resources.
func (p *Provider) Shutdown(ctx context.Context) error {
	return errors.Join(p.tp.Shutdown(ctx), p.mp.Shutdown(ctx))
}
