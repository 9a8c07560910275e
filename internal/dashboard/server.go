// Package dashboard serves the monitoring web UI and its JSON API.
//
// The page shows backend health, the session's download jobs with links to
// their traces, and the rolling latency metrics. Every call it makes to the
// backend goes through the traced executor, so a click in the browser shows
// up as one trace spanning the dashboard and the backend.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/delineate-monitor/internal/apiclient"
	"github.com/tombee/delineate-monitor/internal/jobs"
	"github.com/tombee/delineate-monitor/internal/log"
	"github.com/tombee/delineate-monitor/internal/metrics"
	"github.com/tombee/delineate-monitor/internal/tracing"
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address for Run. Default ":8080".
	Addr string

	Client     *apiclient.Client
	Aggregator *metrics.Aggregator
	Jobs       *jobs.Store

	// Poller is created from Client when nil.
	Poller       *HealthPoller
	PollInterval time.Duration

	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler

	TracerProvider trace.TracerProvider

	// ViewerURL is the trace viewer base, e.g. http://localhost:16686.
	ViewerURL string

	ShutdownTimeout time.Duration
	Version         string
	Logger          *slog.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	opts    Options
	mux     *http.ServeMux
	handler http.Handler
	poller  *HealthPoller
	page    *page
	logger  *slog.Logger
}

// New creates a server and registers its routes.
func New(opts Options) (*Server, error) {
	if opts.Client == nil {
		return nil, errors.New("dashboard: client is required")
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.Aggregator == nil {
		opts.Aggregator = metrics.NewAggregator()
	}
	if opts.Jobs == nil {
		opts.Jobs = jobs.NewStore(jobs.DefaultLimit)
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := log.WithComponent(opts.Logger, "dashboard")

	poller := opts.Poller
	if poller == nil {
		poller = NewHealthPoller(opts.Client, opts.PollInterval, opts.ViewerURL, logger)
	}

	pg, err := newPage()
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	s := &Server{
		opts:   opts,
		mux:    http.NewServeMux(),
		poller: poller,
		page:   pg,
		logger: logger,
	}
	s.routes()

	// Outermost first: request id, trace extraction, server span, access log
	var h http.Handler = s.mux
	h = log.AccessLog(logger)(h)
	h = tracing.TracingMiddleware(opts.TracerProvider)(h)
	h = tracing.HTTPMiddleware(h)
	h = tracing.RequestIDMiddleware(h)
	s.handler = h

	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /downloads", s.handleForm)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/downloads/check", s.handleCheck)
	s.mux.HandleFunc("POST /api/downloads/start", s.handleStart)
	s.mux.HandleFunc("GET /api/jobs", s.handleJobs)
	s.mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	s.mux.HandleFunc("DELETE /api/metrics", s.handleMetricsReset)
	s.mux.HandleFunc("GET /api/traces/{id}", s.handleTrace)

	s.mux.HandleFunc("GET /healthz", s.handleLiveness)
	if s.opts.MetricsHandler != nil {
		s.mux.Handle("GET /metrics", s.opts.MetricsHandler)
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Poller returns the health poller backing /api/health.
func (s *Server) Poller() *HealthPoller {
	return s.poller
}

// Run starts the health poller and serves on Addr until ctx is done, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("dashboard: listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	pollCtx, stopPoll := context.WithCancel(ctx)
	defer stopPoll()
	go s.poller.Run(pollCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("dashboard: serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("dashboard shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard: shutdown: %w", err)
	}
	return nil
}
