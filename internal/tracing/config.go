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
	"fmt"
	"time"
)

// Exporter types accepted in ExporterConfig.Type.
const (
	ExporterOTLP     = "otlp"
	ExporterOTLPHTTP = "otlp-http"
	ExporterConsole  = "console"
	ExporterNone     = "none"
)

// Config configures the tracer provider.
type Config struct {
	// ServiceName identifies this process in traces.
	ServiceName string

	// ServiceVersion is the application version.
	ServiceVersion string

	// Environment is recorded as deployment.environment.name.
	Environment string

	// Sampling configures trace sampling.
	Sampling SamplingConfig

	// Exporter configures where spans are sent. With an empty endpoint spans
	// are still created, so trace IDs exist, but nothing leaves the process.
	Exporter ExporterConfig

	// BatchSize is the maximum number of spans per export batch (default: 512).
	BatchSize int

	// BatchInterval is how often to flush spans (default: 5s).
	BatchInterval time.Duration
}

// SamplingConfig configures head sampling.
type SamplingConfig struct {
	// Rate is the fraction of root traces to sample (0.0 - 1.0).
	// Unsampled spans still carry a valid trace ID.
	Rate float64
}

// ExporterConfig describes a span export destination.
type ExporterConfig struct {
	// Type is "otlp", "otlp-http", "console" or "none".
	Type string

	// Endpoint is the collector URL.
	Endpoint string

	// Insecure forces plaintext even for https endpoints.
	Insecure bool

	// Headers are additional headers for authentication.
	Headers map[string]string

	// TLS configures certificate verification.
	TLS TLSConfig

	// Timeout is the export timeout.
	Timeout time.Duration
}

// TLSConfig configures secure collector connections.
type TLSConfig struct {
	// CACertPath is the path to the CA certificate.
	CACertPath string

	// SkipVerify disables certificate verification.
	SkipVerify bool
}

// Enabled reports whether spans will be exported anywhere.
func (c ExporterConfig) Enabled() bool {
	switch c.Type {
	case ExporterNone, "":
		return false
	case ExporterConsole:
		return true
	default:
		return c.Endpoint != ""
	}
}

// DefaultConfig returns the default tracing configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "delineate-monitor",
		ServiceVersion: "unknown",
		Sampling: SamplingConfig{
			Rate: 1.0,
		},
		Exporter: ExporterConfig{
			Type: ExporterOTLPHTTP,
		},
		BatchSize:     512,
		BatchInterval: 5 * time.Second,
	}
}

// Validate checks the configuration for values the SDK would reject.
func (c Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	if c.Sampling.Rate < 0 || c.Sampling.Rate > 1 {
		return fmt.Errorf("sampling rate must be between 0 and 1, got %v", c.Sampling.Rate)
	}
	switch c.Exporter.Type {
	case ExporterOTLP, ExporterOTLPHTTP, "otlp_http", ExporterConsole, ExporterNone, "":
	default:
		return fmt.Errorf("unknown exporter type: %s", c.Exporter.Type)
	}
	return nil
}
