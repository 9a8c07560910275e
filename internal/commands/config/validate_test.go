package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/delineate-monitor/internal/commands/shared"
	"github.com/tombee/delineate-monitor/internal/config"
)

func TestValidate_ValidWithWarnings(t *testing.T) {
	isolate(t)

	out, err := execute(t, NewConfigCommand(), "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
	assert.Contains(t, out, "SENTRY_DSN is not set")
}

func TestValidate_StrictFailsOnWarnings(t *testing.T) {
	isolate(t)
	setJSON()

	out, err := execute(t, NewConfigCommand(), "validate", "--strict")
	require.Error(t, err)
	assert.Equal(t, shared.ExitInvalidInput, shared.ExitCode(err))

	var result ValidationResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Valid)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
}

func TestValidate_InvalidConfig(t *testing.T) {
	isolate(t)
	setJSON()
	t.Setenv("DELINEATE_OTEL_EXPORTER", "zipkin")

	out, err := execute(t, NewConfigCommand(), "validate")
	require.Error(t, err)

	var result ValidationResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "tracing.exporter")
}

func TestConfigWarnings(t *testing.T) {
	cfg := config.Default()
	cfg.ErrorReporting.DSN = "https://k@sentry.example.com/1"
	cfg.Tracing.CollectorURL = "http://localhost:4318"
	assert.Empty(t, configWarnings(cfg))

	cfg.Tracing.CollectorURL = ""
	cfg.Tracing.SampleRate = 0
	cfg.TraceViewer.BaseURL = ""
	warnings := configWarnings(cfg)
	assert.Len(t, warnings, 3)
}
