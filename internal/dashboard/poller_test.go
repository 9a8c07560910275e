package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/delineate-monitor/internal/apiclient"
)

type stubChecker struct {
	calls atomic.Int32
	err   error
}

func (s *stubChecker) Health(ctx context.Context) (apiclient.HealthResponse, apiclient.Meta, error) {
	s.calls.Add(1)
	meta := apiclient.Meta{TraceID: "0af7651916cd43dd8448eb211c80319c", Latency: 12 * time.Millisecond}
	if s.err != nil {
		return apiclient.HealthResponse{}, meta, s.err
	}
	return apiclient.HealthResponse{Status: "healthy", Checks: apiclient.HealthChecks{Storage: "ok"}}, meta, nil
}

func TestHealthPoller_Poll(t *testing.T) {
	checker := &stubChecker{}
	p := NewHealthPoller(checker, 0, "http://jaeger:16686", nil)

	_, ok := p.Last()
	assert.False(t, ok)

	state := p.Poll(context.Background())
	assert.True(t, state.Healthy())
	assert.Equal(t, 12.0, state.LatencyMs)
	assert.Equal(t, "http://jaeger:16686/trace/0af7651916cd43dd8448eb211c80319c", state.TraceURL)

	last, ok := p.Last()
	assert.True(t, ok)
	assert.Equal(t, state, last)
}

func TestHealthPoller_PollError(t *testing.T) {
	apiErr := &apiclient.APIError{
		StatusCode: 503,
		Body:       apiclient.ErrorBody{Error: "unavailable", Message: "storage down"},
		TraceID:    "ffffffffffffffffffffffffffffffff",
	}
	p := NewHealthPoller(&stubChecker{err: apiErr}, time.Second, "", nil)

	state := p.Poll(context.Background())
	assert.False(t, state.Healthy())
	assert.Equal(t, "storage down", state.Error)
	assert.Nil(t, state.Health)
	assert.Equal(t, "ffffffffffffffffffffffffffffffff", state.TraceID)
	assert.Empty(t, state.TraceURL, "no viewer configured")

	p = NewHealthPoller(&stubChecker{err: errors.New("dial tcp: refused")}, time.Second, "", nil)
	assert.Equal(t, "dial tcp: refused", p.Poll(context.Background()).Error)
}

func TestHealthPoller_RunStopsOnCancel(t *testing.T) {
	checker := &stubChecker{}
	p := NewHealthPoller(checker, 10*time.Millisecond, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return checker.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
