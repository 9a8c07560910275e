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
	"fmt"
	"io"
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tombee/delineate-monitor/internal/redact"
	"github.com/tombee/delineate-monitor/internal/tracing/export"
)

// CreateExporter creates a span exporter from configuration. It returns
// nil, nil when export is disabled.
func CreateExporter(ctx context.Context, cfg ExporterConfig, console io.Writer) (sdktrace.SpanExporter, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	switch cfg.Type {
	case ExporterConsole:
		return export.NewConsoleExporter(console, true)

	case ExporterOTLP, ExporterOTLPHTTP, "otlp_http":
		tlsConfig, err := export.BuildTLSConfig(export.TLSOptions{
			CACertPath: cfg.TLS.CACertPath,
			SkipVerify: cfg.TLS.SkipVerify,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build TLS config for %s exporter: %w", cfg.Type, err)
		}

		target := export.Target{
			URL:       cfg.Endpoint,
			Insecure:  cfg.Insecure,
			TLSConfig: tlsConfig,
			Headers:   cfg.Headers,
			Timeout:   cfg.Timeout,
		}
		if cfg.Type == ExporterOTLP {
			return export.NewOTLPExporter(ctx, target)
		}
		return export.NewOTLPHTTPExporter(ctx, target)

	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.Type)
	}
}

// newBatchProcessor wraps the configured exporter in a batch span processor.
// Exporter creation failures are logged and leave tracing local-only rather
// than blocking startup.
func newBatchProcessor(ctx context.Context, cfg Config, console io.Writer) sdktrace.SpanProcessor {
	endpoint := redact.New().URL(cfg.Exporter.Endpoint)
	exporter, err := CreateExporter(ctx, cfg.Exporter, console)
	if err != nil {
		slog.Warn("failed to create span exporter, traces will not be exported",
			"type", cfg.Exporter.Type,
			"endpoint", endpoint,
			"error", err)
		return nil
	}
	if exporter == nil {
		slog.Debug("span export disabled", "type", cfg.Exporter.Type)
		return nil
	}

	var batchOpts []sdktrace.BatchSpanProcessorOption
	if cfg.BatchSize > 0 {
		batchOpts = append(batchOpts, sdktrace.WithMaxExportBatchSize(cfg.BatchSize))
	}
	if cfg.BatchInterval > 0 {
		batchOpts = append(batchOpts, sdktrace.WithBatchTimeout(cfg.BatchInterval))
	}

	slog.Info("created span exporter",
		"type", cfg.Exporter.Type,
		"endpoint", endpoint)

	return sdktrace.NewBatchSpanProcessor(exporter, batchOpts...)
}
