package serve

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/delineate-monitor/internal/commands/shared"
	"github.com/tombee/delineate-monitor/internal/testing/fakebackend"
)

func TestServe_StopsOnCancel(t *testing.T) {
	shared.ResetFlagsForTest()
	backend := fakebackend.New(t)
	backend.Setenv(t)

	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{"--addr", "127.0.0.1:0"})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "Dashboard on http://127.0.0.1:0")

	// The poller checks health as soon as the server starts
	assert.Eventually(t, func() bool { return backend.Count() >= 1 }, time.Second, 10*time.Millisecond)
}

func TestServe_ListenError(t *testing.T) {
	shared.ResetFlagsForTest()
	backend := fakebackend.New(t)
	backend.Setenv(t)

	cmd := NewCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{"--addr", "256.0.0.1:bad"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Equal(t, shared.ExitExecutionFailed, shared.ExitCode(err))
}

func TestDisplayAddr(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", displayAddr(":8080"))
	assert.Equal(t, "http://0.0.0.0:9090", displayAddr("0.0.0.0:9090"))
}
