package shared

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/getsentry/sentry-go"

	"github.com/tombee/delineate-monitor/internal/apiclient"
	"github.com/tombee/delineate-monitor/internal/config"
	"github.com/tombee/delineate-monitor/internal/errreport"
	"github.com/tombee/delineate-monitor/internal/log"
	"github.com/tombee/delineate-monitor/internal/metrics"
	"github.com/tombee/delineate-monitor/internal/redact"
	"github.com/tombee/delineate-monitor/internal/tracing"
	"github.com/tombee/delineate-monitor/pkg/httpclient"
)

const (
	// errorFlushTimeout bounds how long Shutdown waits for queued error reports.
	errorFlushTimeout = 2 * time.Second

	shutdownTimeout = 5 * time.Second
)

// Runtime is the wired monitoring stack shared by every command: one traced
// executor feeding the aggregator, the OpenTelemetry instruments and the
// error reporter.
type Runtime struct {
	Config     *config.Config
	Logger     *slog.Logger
	Provider   *tracing.Provider
	Errors     errreport.Reporter
	Aggregator *metrics.Aggregator
	Collector  *metrics.Collector
	Executor   *apiclient.Executor
	Client     *apiclient.Client
}

// RuntimeOptions adjusts BuildRuntime; the zero value is what the CLI uses.
type RuntimeOptions struct {
	// LogOutput receives logs. Default os.Stderr.
	LogOutput io.Writer

	// Verbose forces debug logging; Quiet limits logging to errors.
	Verbose bool
	Quiet   bool

	// TracerOptions are appended to the provider's options; tests pass a
	// synchronous in-memory exporter here.
	TracerOptions []sdktrace.TracerProviderOption

	// ErrorTransport replaces the Sentry transport.
	ErrorTransport sentry.Transport
}

// NewRuntime loads configuration using the global flags and builds the
// runtime. Configuration problems exit with ExitInvalidInput.
func NewRuntime(ctx context.Context) (*Runtime, error) {
	cfg, err := config.Load(GetConfigPath())
	if err != nil {
		return nil, NewInvalidInputError("invalid configuration", err)
	}
	rt, err := BuildRuntime(ctx, cfg, RuntimeOptions{Verbose: GetVerbose(), Quiet: GetQuiet()})
	if err != nil {
		return nil, NewExecutionError("failed to initialize", err)
	}
	return rt, nil
}

// RunWithRuntime builds the runtime from the global flags, runs fn and then
// flushes telemetry, even when fn fails.
func RunWithRuntime(ctx context.Context, fn func(ctx context.Context, rt *Runtime) error) error {
	rt, err := NewRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := rt.Shutdown(flushCtx); err != nil {
			rt.Logger.Warn("telemetry shutdown incomplete", log.Error(err))
		}
	}()
	return fn(ctx, rt)
}

// BuildRuntime wires the stack from cfg.
func BuildRuntime(ctx context.Context, cfg *config.Config, opts RuntimeOptions) (*Runtime, error) {
	ver, _, _ := GetVersion()

	logCfg := &log.Config{
		Level:     cfg.Log.Level,
		Format:    log.Format(cfg.Log.Format),
		Output:    opts.LogOutput,
		AddSource: cfg.Log.AddSource,
	}
	switch {
	case opts.Verbose:
		logCfg.Level = "debug"
	case opts.Quiet:
		logCfg.Level = "error"
	}
	if logCfg.Output == nil {
		logCfg.Output = os.Stderr
	}
	logger := log.New(logCfg)
	slog.SetDefault(logger)

	provider, err := tracing.NewProvider(ctx, tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: ver,
		Environment:    cfg.ErrorReporting.Environment,
		Sampling:       tracing.SamplingConfig{Rate: cfg.Tracing.SampleRate},
		Exporter: tracing.ExporterConfig{
			Type:     cfg.Tracing.Exporter,
			Endpoint: cfg.Tracing.CollectorURL,
			Insecure: cfg.Tracing.Insecure,
			Headers:  cfg.Tracing.Headers,
			Timeout:  10 * time.Second,
		},
		BatchSize:     512,
		BatchInterval: 5 * time.Second,
	}, opts.TracerOptions...)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	reporter, err := errreport.New(errreport.Config{
		DSN:         cfg.ErrorReporting.DSN,
		Environment: cfg.ErrorReporting.Environment,
		Release:     "delineate-monitor@" + ver,
		Debug:       cfg.ErrorReporting.Debug,
		Transport:   opts.ErrorTransport,
	})
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("error reporting: %w", err)
	}

	agg := metrics.NewAggregator(metrics.WithWindowSize(cfg.Metrics.WindowSize))
	collector, err := metrics.NewCollector(provider.MeterProvider())
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("metrics: %w", err)
	}
	collector.SetAggregator(agg)

	userAgent := cfg.Backend.UserAgent
	if userAgent == "" {
		userAgent = "delineate-monitor/" + ver
	}
	httpClient, err := httpclient.New(httpclient.Config{
		Timeout:   cfg.Backend.Timeout,
		UserAgent: userAgent,
	})
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("http client: %w", err)
	}

	exec := apiclient.NewExecutor(httpClient,
		apiclient.WithTracerProvider(provider.TracerProvider()),
		apiclient.WithPropagator(tracing.W3CPropagator()),
		apiclient.WithReporter(agg),
		apiclient.WithCollector(collector),
		apiclient.WithErrorReporter(reporter),
		apiclient.WithLogger(log.WithComponent(logger, "apiclient")),
	)

	redactor := redact.New()
	logger.Debug("runtime initialized",
		"backend", cfg.Backend.BaseURL,
		"exporter", cfg.Tracing.Exporter,
		"collector", redactor.URL(cfg.Tracing.CollectorURL),
		"exporting", provider.Exporting(),
		"otel_headers", redactor.Headers(cfg.Tracing.Headers),
		"error_reporting", cfg.ErrorReporting.DSN != "" || opts.ErrorTransport != nil,
	)

	return &Runtime{
		Config:     cfg,
		Logger:     logger,
		Provider:   provider,
		Errors:     reporter,
		Aggregator: agg,
		Collector:  collector,
		Executor:   exec,
		Client:     apiclient.NewClient(cfg.Backend.BaseURL, exec),
	}, nil
}

// ViewerURL links traceID in the configured trace viewer, or "" when either
// is missing.
func (r *Runtime) ViewerURL(traceID string) string {
	if traceID == "" || r.Config.TraceViewer.BaseURL == "" {
		return ""
	}
	return tracing.ViewerURL(r.Config.TraceViewer.BaseURL, traceID)
}

// Shutdown flushes pending error reports and spans.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error
	if !r.Errors.Flush(errorFlushTimeout) {
		errs = append(errs, errors.New("timed out flushing error reports"))
	}
	if err := r.Provider.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
