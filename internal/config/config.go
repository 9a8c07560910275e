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

// Package config loads the monitor's configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. Load validates the result.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	monitorerrors "github.com/tombee/delineate-monitor/pkg/errors"
)

// Exporter names accepted in Tracing.Exporter.
var validExporters = map[string]bool{"otlp": true, "otlp-http": true, "console": true, "none": true}

// Config represents the complete monitor configuration.
type Config struct {
	Backend        BackendConfig        `yaml:"backend" json:"backend"`
	Tracing        TracingConfig        `yaml:"tracing" json:"tracing"`
	ErrorReporting ErrorReportingConfig `yaml:"error_reporting" json:"error_reporting"`
	TraceViewer    TraceViewerConfig    `yaml:"trace_viewer" json:"trace_viewer"`
	Metrics        MetricsConfig        `yaml:"metrics" json:"metrics"`
	Dashboard      DashboardConfig      `yaml:"dashboard" json:"dashboard"`
	Log            LogConfig            `yaml:"log" json:"log"`
}

// BackendConfig locates the download service.
type BackendConfig struct {
	// BaseURL is the service root, e.g. http://localhost:3000.
	// Environment: DELINEATE_API_BASE_URL
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Timeout bounds a single call, including reading the body.
	// Environment: DELINEATE_API_TIMEOUT
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// UserAgent overrides the default delineate-monitor/<version>.
	UserAgent string `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	// CollectorURL is the OTLP endpoint. Empty disables export; spans are
	// still created so trace IDs can be shown.
	// Environment: DELINEATE_OTEL_COLLECTOR_URL
	CollectorURL string `yaml:"collector_url,omitempty" json:"collector_url,omitempty"`

	// Exporter is one of otlp, otlp-http, console, none.
	// Environment: DELINEATE_OTEL_EXPORTER
	Exporter string `yaml:"exporter" json:"exporter"`

	// Environment: DELINEATE_OTEL_SERVICE_NAME
	ServiceName string `yaml:"service_name" json:"service_name"`

	// SampleRate is the head sampling ratio in [0,1].
	// Environment: DELINEATE_OTEL_SAMPLE_RATE
	SampleRate float64 `yaml:"sample_rate" json:"sample_rate"`

	// Insecure disables TLS towards the collector.
	// Environment: DELINEATE_OTEL_INSECURE
	Insecure bool `yaml:"insecure" json:"insecure"`

	// Headers are sent with every export request.
	// Environment: DELINEATE_OTEL_HEADERS (key:value,key:value)
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// ErrorReportingConfig configures the Sentry sink.
type ErrorReportingConfig struct {
	// DSN is the Sentry project DSN. Empty disables reporting.
	// Environment: SENTRY_DSN
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`

	// Environment: SENTRY_ENVIRONMENT
	Environment string `yaml:"environment" json:"environment"`

	// Debug enables the Sentry SDK's own logging.
	Debug bool `yaml:"debug,omitempty" json:"debug,omitempty"`
}

// TraceViewerConfig configures trace deep links.
type TraceViewerConfig struct {
	// BaseURL is the Jaeger UI root.
	// Environment: DELINEATE_JAEGER_UI_URL
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// MetricsConfig configures the latency aggregator.
type MetricsConfig struct {
	// WindowSize is the number of recent latencies averaged. 0 selects 100.
	// Environment: DELINEATE_LATENCY_WINDOW
	WindowSize int `yaml:"window_size" json:"window_size"`
}

// DashboardConfig configures the serve command.
type DashboardConfig struct {
	// Environment: DELINEATE_DASHBOARD_ADDR
	Addr string `yaml:"addr" json:"addr"`

	// PollInterval is how often backend health is refreshed.
	// Environment: DELINEATE_HEALTH_POLL_INTERVAL
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`

	// JobLimit caps the in-memory job log.
	// Environment: DELINEATE_JOB_LIMIT
	JobLimit int `yaml:"job_limit" json:"job_limit"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	// Environment: LOG_LEVEL, DELINEATE_LOG_LEVEL, DELINEATE_DEBUG
	Level string `yaml:"level" json:"level"`

	// Format is json or text.
	// Environment: LOG_FORMAT
	Format string `yaml:"format" json:"format"`

	AddSource bool `yaml:"add_source,omitempty" json:"add_source,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:3000",
			Timeout: 30 * time.Second,
		},
		Tracing: TracingConfig{
			Exporter:    "otlp-http",
			ServiceName: "delineate-monitor",
			SampleRate:  1.0,
			Insecure:    true,
		},
		ErrorReporting: ErrorReportingConfig{
			Environment: "development",
		},
		TraceViewer: TraceViewerConfig{
			BaseURL: "http://localhost:16686",
		},
		Metrics: MetricsConfig{
			WindowSize: 100,
		},
		Dashboard: DashboardConfig{
			Addr:            ":8080",
			PollInterval:    5 * time.Second,
			JobLimit:        100,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. When configPath is empty the default
// location is read if a file exists there; a missing default file is not an
// error. Environment variables take precedence over the file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	path := configPath
	if path == "" {
		if p, err := ConfigPath(); err == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				path = p
			}
		}
	}

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, &monitorerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", path),
				Cause:  err,
			}
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, &monitorerrors.ConfigError{
			Key:    "environment",
			Reason: "invalid environment variable",
			Cause:  err,
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile loads configuration from a YAML file. Unknown keys are
// rejected so typos surface early.
func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// envSpec is the flat environment view of Config. It is pre-filled from the
// current values so unset variables leave them untouched.
type envSpec struct {
	BaseURL      string            `envconfig:"DELINEATE_API_BASE_URL"`
	Timeout      time.Duration     `envconfig:"DELINEATE_API_TIMEOUT"`
	CollectorURL string            `envconfig:"DELINEATE_OTEL_COLLECTOR_URL"`
	Exporter     string            `envconfig:"DELINEATE_OTEL_EXPORTER"`
	ServiceName  string            `envconfig:"DELINEATE_OTEL_SERVICE_NAME"`
	SampleRate   float64           `envconfig:"DELINEATE_OTEL_SAMPLE_RATE"`
	Insecure     bool              `envconfig:"DELINEATE_OTEL_INSECURE"`
	Headers      map[string]string `envconfig:"DELINEATE_OTEL_HEADERS"`
	SentryDSN    string            `envconfig:"SENTRY_DSN"`
	SentryEnv    string            `envconfig:"SENTRY_ENVIRONMENT"`
	JaegerURL    string            `envconfig:"DELINEATE_JAEGER_UI_URL"`
	WindowSize   int               `envconfig:"DELINEATE_LATENCY_WINDOW"`
	Addr         string            `envconfig:"DELINEATE_DASHBOARD_ADDR"`
	PollInterval time.Duration     `envconfig:"DELINEATE_HEALTH_POLL_INTERVAL"`
	JobLimit     int               `envconfig:"DELINEATE_JOB_LIMIT"`
	LogLevel     string            `envconfig:"LOG_LEVEL"`
	LogFormat    string            `envconfig:"LOG_FORMAT"`
	AppLogLevel  string            `envconfig:"DELINEATE_LOG_LEVEL"`
	Debug        bool              `envconfig:"DELINEATE_DEBUG"`
}

func (c *Config) loadFromEnv() error {
	env := envSpec{
		BaseURL:      c.Backend.BaseURL,
		Timeout:      c.Backend.Timeout,
		CollectorURL: c.Tracing.CollectorURL,
		Exporter:     c.Tracing.Exporter,
		ServiceName:  c.Tracing.ServiceName,
		SampleRate:   c.Tracing.SampleRate,
		Insecure:     c.Tracing.Insecure,
		Headers:      c.Tracing.Headers,
		SentryDSN:    c.ErrorReporting.DSN,
		SentryEnv:    c.ErrorReporting.Environment,
		JaegerURL:    c.TraceViewer.BaseURL,
		WindowSize:   c.Metrics.WindowSize,
		Addr:         c.Dashboard.Addr,
		PollInterval: c.Dashboard.PollInterval,
		JobLimit:     c.Dashboard.JobLimit,
		LogLevel:     c.Log.Level,
		LogFormat:    c.Log.Format,
	}
	if err := envconfig.Process("", &env); err != nil {
		return err
	}

	c.Backend.BaseURL = env.BaseURL
	c.Backend.Timeout = env.Timeout
	c.Tracing.CollectorURL = env.CollectorURL
	c.Tracing.Exporter = strings.ToLower(env.Exporter)
	c.Tracing.ServiceName = env.ServiceName
	c.Tracing.SampleRate = env.SampleRate
	c.Tracing.Insecure = env.Insecure
	c.Tracing.Headers = env.Headers
	c.ErrorReporting.DSN = env.SentryDSN
	c.ErrorReporting.Environment = env.SentryEnv
	c.TraceViewer.BaseURL = env.JaegerURL
	c.Metrics.WindowSize = env.WindowSize
	c.Dashboard.Addr = env.Addr
	c.Dashboard.PollInterval = env.PollInterval
	c.Dashboard.JobLimit = env.JobLimit
	c.Log.Level = strings.ToLower(env.LogLevel)
	c.Log.Format = strings.ToLower(env.LogFormat)

	// DELINEATE_DEBUG wins over DELINEATE_LOG_LEVEL, which wins over LOG_LEVEL
	switch {
	case env.Debug:
		c.Log.Level = "debug"
		c.Log.AddSource = true
	case env.AppLogLevel != "":
		c.Log.Level = strings.ToLower(env.AppLogLevel)
	}
	return nil
}

// applyDefaults fills zero values left by a sparse file.
func (c *Config) applyDefaults() {
	d := Default()

	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = d.Backend.BaseURL
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = d.Backend.Timeout
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = d.Tracing.Exporter
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = d.Tracing.ServiceName
	}
	if c.ErrorReporting.Environment == "" {
		c.ErrorReporting.Environment = d.ErrorReporting.Environment
	}
	if c.Metrics.WindowSize == 0 {
		c.Metrics.WindowSize = d.Metrics.WindowSize
	}
	if c.Dashboard.Addr == "" {
		c.Dashboard.Addr = d.Dashboard.Addr
	}
	if c.Dashboard.PollInterval == 0 {
		c.Dashboard.PollInterval = d.Dashboard.PollInterval
	}
	if c.Dashboard.JobLimit == 0 {
		c.Dashboard.JobLimit = d.Dashboard.JobLimit
	}
	if c.Dashboard.ShutdownTimeout == 0 {
		c.Dashboard.ShutdownTimeout = d.Dashboard.ShutdownTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate checks that the configuration is usable. The first problem found
// is returned as a *errors.ConfigError.
func (c *Config) Validate() error {
	if err := validateURL("backend.base_url", c.Backend.BaseURL, true); err != nil {
		return err
	}
	if c.Backend.Timeout <= 0 {
		return invalid("backend.timeout", fmt.Sprintf("must be positive, got %v", c.Backend.Timeout))
	}
	if err := validateURL("tracing.collector_url", c.Tracing.CollectorURL, false); err != nil {
		return err
	}
	if !validExporters[c.Tracing.Exporter] {
		return invalid("tracing.exporter", fmt.Sprintf("must be one of [otlp, otlp-http, console, none], got %q", c.Tracing.Exporter))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return invalid("tracing.sample_rate", fmt.Sprintf("must be between 0 and 1, got %v", c.Tracing.SampleRate))
	}
	if err := validateURL("trace_viewer.base_url", c.TraceViewer.BaseURL, false); err != nil {
		return err
	}
	if c.Metrics.WindowSize < 0 {
		return invalid("metrics.window_size", fmt.Sprintf("must not be negative, got %d", c.Metrics.WindowSize))
	}
	if c.Dashboard.JobLimit < 0 {
		return invalid("dashboard.job_limit", fmt.Sprintf("must not be negative, got %d", c.Dashboard.JobLimit))
	}
	if c.Dashboard.PollInterval < 0 {
		return invalid("dashboard.poll_interval", fmt.Sprintf("must not be negative, got %v", c.Dashboard.PollInterval))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		return invalid("log.level", fmt.Sprintf("must be one of [debug, info, warn, error], got %q", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", fmt.Sprintf("must be one of [json, text], got %q", c.Log.Format))
	}
	return nil
}

func invalid(key, reason string) error {
	return &monitorerrors.ConfigError{Key: key, Reason: reason}
}

func validateURL(key, raw string, required bool) error {
	if raw == "" {
		if required {
			return invalid(key, "is required")
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &monitorerrors.ConfigError{Key: key, Reason: "is not a valid URL", Cause: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid(key, fmt.Sprintf("must use http or https, got %q", raw))
	}
	if u.Host == "" {
		return invalid(key, fmt.Sprintf("must include a host, got %q", raw))
	}
	return nil
}
