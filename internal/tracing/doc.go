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

/*
Package tracing sets up OpenTelemetry for delineate-monitor.

Every backend call runs inside a span so that its trace ID can be shown to
the user, attached to error reports and opened in the trace viewer. Spans are
always created; whether they are exported depends on the configured
collector.

# Quick Start

Create a provider from configuration:

	cfg := tracing.DefaultConfig()
	cfg.Exporter.Endpoint = "http://localhost:4318/v1/traces"

	provider, err := tracing.NewProvider(ctx, cfg)
	if err != nil {
	    return err
	}
	defer provider.Shutdown(context.Background())

Use the tracer for client spans and read the trace ID back:

	ctx, span := provider.Tracer("apiclient").Start(ctx, "GET http://localhost:3000/health")
	defer span.End()

	link := tracing.ViewerURL("http://localhost:16686", tracing.TraceIDFromContext(ctx))

# HTTP servers

The dashboard chains the middleware in this order:

	handler = tracing.RequestIDMiddleware(
	    tracing.HTTPMiddleware(
	        tracing.TracingMiddleware(provider.TracerProvider())(mux)))

# Metrics

MeterProvider feeds a private Prometheus registry exposed by MetricsHandler.
*/
package tracing
