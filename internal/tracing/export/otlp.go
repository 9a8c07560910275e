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

// Package export builds span exporters for the trace collector.
package export

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials"
)

// Target describes where spans are sent.
type Target struct {
	// URL is the collector URL, e.g. "http://localhost:4318/v1/traces".
	// An http scheme implies a plaintext connection.
	URL string

	// Insecure forces a plaintext connection regardless of scheme.
	Insecure bool

	// TLSConfig overrides the default TLS settings for https targets.
	TLSConfig *tls.Config

	// Headers are sent with every export request.
	Headers map[string]string

	// Timeout bounds a single export call. Zero keeps the exporter default.
	Timeout time.Duration
}

func (t Target) validate() error {
	if t.URL == "" {
		return fmt.Errorf("collector URL is required")
	}
	u, err := url.Parse(t.URL)
	if err != nil {
		return fmt.Errorf("invalid collector URL %q: %w", t.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("collector URL %q must use http or https", t.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("collector URL %q has no host", t.URL)
	}
	return nil
}

func (t Target) plaintext() bool {
	if t.Insecure {
		return true
	}
	u, err := url.Parse(t.URL)
	return err == nil && u.Scheme == "http"
}

// NewOTLPExporter creates an OTLP gRPC span exporter.
func NewOTLPExporter(ctx context.Context, target Target) (trace.SpanExporter, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpointURL(target.URL)}

	switch {
	case target.plaintext():
		opts = append(opts, otlptracegrpc.WithInsecure())
	case target.TLSConfig != nil:
		if err := ValidateTLSConfig(target.TLSConfig); err != nil {
			return nil, fmt.Errorf("invalid TLS config: %w", err)
		}
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(target.TLSConfig)))
	default:
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})))
	}

	if len(target.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(target.Headers))
	}
	if target.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(target.Timeout))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
	}
	return exporter, nil
}
