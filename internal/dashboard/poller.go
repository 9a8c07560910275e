package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tombee/delineate-monitor/internal/apiclient"
	"github.com/tombee/delineate-monitor/internal/tracing"
)

// DefaultPollInterval is how often backend health is refreshed.
const DefaultPollInterval = 5 * time.Second

// HealthChecker is the backend call the poller drives.
type HealthChecker interface {
	Health(ctx context.Context) (apiclient.HealthResponse, apiclient.Meta, error)
}

// HealthState is the outcome of the most recent poll.
type HealthState struct {
	Health    *apiclient.HealthResponse `json:"health,omitempty"`
	Error     string                    `json:"error,omitempty"`
	TraceID   string                    `json:"trace_id,omitempty"`
	TraceURL  string                    `json:"trace_url,omitempty"`
	LatencyMs float64                   `json:"latency_ms"`
	CheckedAt time.Time                 `json:"checked_at"`
}

// Healthy reports whether the last poll succeeded with a healthy status.
func (s HealthState) Healthy() bool {
	return s.Error == "" && s.Health != nil && s.Health.Healthy()
}

// HealthPoller calls the backend health endpoint on an interval and keeps
// the last result. Each poll is its own trace.
type HealthPoller struct {
	checker  HealthChecker
	interval time.Duration
	viewer   string
	logger   *slog.Logger

	mu    sync.RWMutex
	state HealthState
	seen  bool
}

// NewHealthPoller creates a poller. interval <= 0 selects
// DefaultPollInterval; viewer is the trace viewer base used for links.
func NewHealthPoller(checker HealthChecker, interval time.Duration, viewer string, logger *slog.Logger) *HealthPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthPoller{
		checker:  checker,
		interval: interval,
		viewer:   viewer,
		logger:   logger,
	}
}

// Run polls once immediately and then every interval until ctx is done.
func (p *HealthPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll performs one health call, stores and returns its outcome.
func (p *HealthPoller) Poll(ctx context.Context) HealthState {
	health, meta, err := p.checker.Health(ctx)

	state := HealthState{
		TraceID:   meta.TraceID,
		LatencyMs: float64(meta.Latency) / float64(time.Millisecond),
		CheckedAt: time.Now(),
	}
	if err != nil {
		state.Error = err.Error()
		if id := apiclient.TraceIDOf(err); id != "" {
			state.TraceID = id
		}
		// cancellation during shutdown is not worth a warning
		if ctx.Err() == nil {
			p.logger.Warn("health poll failed", "error", err, "trace_id", state.TraceID)
		}
	} else {
		state.Health = &health
	}
	if state.TraceID != "" && p.viewer != "" {
		state.TraceURL = tracing.ViewerURL(p.viewer, state.TraceID)
	}

	p.mu.Lock()
	p.state = state
	p.seen = true
	p.mu.Unlock()
	return state
}

// Last returns the most recent outcome; ok is false before the first poll.
func (p *HealthPoller) Last() (state HealthState, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state, p.seen
}
