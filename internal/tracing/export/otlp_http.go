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

package export

import (
	"context"
	"crypto/tls"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/trace"
)

// NewOTLPHTTPExporter creates an OTLP HTTP span exporter. The URL path is
// taken from the target URL, so "http://collector:4318/v1/traces" posts to
// /v1/traces.
func NewOTLPHTTPExporter(ctx context.Context, target Target) (trace.SpanExporter, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(target.URL)}

	switch {
	case target.plaintext():
		opts = append(opts, otlptracehttp.WithInsecure())
	case target.TLSConfig != nil:
		if err := ValidateTLSConfig(target.TLSConfig); err != nil {
			return nil, fmt.Errorf("invalid TLS config: %w", err)
		}
		opts = append(opts, otlptracehttp.WithTLSClientConfig(target.TLSConfig))
	default:
		opts = append(opts, otlptracehttp.WithTLSClientConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		}))
	}

	if len(target.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(target.Headers))
	}
	if target.Timeout > 0 {
		opts = append(opts, otlptracehttp.WithTimeout(target.Timeout))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
	}
	return exporter, nil
}
