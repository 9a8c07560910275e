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

package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/delineate-monitor/internal/commands/shared"
	"github.com/tombee/delineate-monitor/internal/config"
	"github.com/tombee/delineate-monitor/internal/redact"
	monitorerrors "github.com/tombee/delineate-monitor/pkg/errors"
	"github.com/tombee/delineate-monitor/pkg/httpclient"
)

const (
	doctorTimeout = 30 * time.Second
	probeTimeout  = 3 * time.Second
)

// DoctorResult contains the overall check results
type DoctorResult struct {
	shared.JSONResponse
	ConfigPath      string        `json:"config_path"`
	ConfigExists    bool          `json:"config_exists"`
	ConfigValid     bool          `json:"config_valid"`
	ConfigError     string        `json:"config_error,omitempty"`
	Checks          []DoctorCheck `json:"checks"`
	Recommendations []string      `json:"recommendations"`
	OverallHealthy  bool          `json:"overall_healthy"`
}

// DoctorCheck is the result of probing one dependency.
type DoctorCheck struct {
	Name    string `json:"name"`
	Target  string `json:"target,omitempty"`
	OK      bool   `json:"ok"`
	Skipped bool   `json:"skipped,omitempty"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewDoctorCommand creates the doctor command
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use: "doctor",
		Annotations: map[string]string{
			"group": "diagnostics",
		},
		Short: "Check configuration and monitoring dependencies",
		Long: `Check that the monitor is configured and can reach everything it reports to.

This command checks:
  - Config file, when present, is valid
  - Download service answers /health
  - Trace collector accepts connections
  - Trace viewer is reachable
  - Error reporting is configured

Provides actionable recommendations for fixing any issues found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), doctorTimeout)
			defer cancel()
			return runDoctor(ctx, cmd)
		},
	}

	return cmd
}

func runDoctor(ctx context.Context, cmd *cobra.Command) error {
	result := DoctorResult{
		JSONResponse:    shared.NewJSONResponse("doctor"),
		Checks:          []DoctorCheck{},
		Recommendations: []string{},
		OverallHealthy:  true,
	}

	result.ConfigPath = shared.GetConfigPath()
	if result.ConfigPath == "" {
		if p, err := config.ConfigPath(); err == nil {
			result.ConfigPath = p
		}
	}
	if result.ConfigPath != "" {
		if _, err := os.Stat(result.ConfigPath); err == nil {
			result.ConfigExists = true
		}
	}

	cfg, err := config.Load(shared.GetConfigPath())
	if err != nil {
		result.ConfigError = err.Error()
		result.OverallHealthy = false
		result.Recommendations = append(result.Recommendations, configRecommendation(err))
		return finishDoctor(cmd, result)
	}
	result.ConfigValid = true

	rt, err := shared.BuildRuntime(ctx, cfg, shared.RuntimeOptions{Verbose: shared.GetVerbose(), Quiet: shared.GetQuiet()})
	if err != nil {
		return shared.NewExecutionError("failed to initialize", err)
	}
	defer func() { _ = rt.Shutdown(context.WithoutCancel(ctx)) }()

	result.Checks = append(result.Checks, checkBackend(ctx, rt))
	result.Checks = append(result.Checks, checkCollector(ctx, cfg))
	result.Checks = append(result.Checks, checkViewer(ctx, cfg))
	result.Checks = append(result.Checks, checkErrorReporting(cfg))

	for _, c := range result.Checks {
		if c.OK || c.Skipped {
			continue
		}
		result.OverallHealthy = false
		result.Recommendations = append(result.Recommendations, recommendationFor(c))
	}
	if cfg.ErrorReporting.DSN == "" {
		result.Recommendations = append(result.Recommendations,
			"Set SENTRY_DSN to forward failed calls to Sentry.")
	}

	return finishDoctor(cmd, result)
}

func finishDoctor(cmd *cobra.Command, result DoctorResult) error {
	result.Success = result.OverallHealthy

	if shared.GetJSON() {
		if err := shared.EmitJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		outputDoctorText(cmd, result)
	}

	if !result.OverallHealthy {
		if !result.ConfigValid {
			return shared.NewInvalidInputError("configuration is invalid", nil)
		}
		return shared.NewExecutionError("doctor found issues", nil)
	}
	return nil
}

func checkBackend(ctx context.Context, rt *shared.Runtime) DoctorCheck {
	check := DoctorCheck{Name: "backend", Target: rt.Client.BaseURL()}

	health, meta, err := rt.Client.Health(ctx)
	check.TraceID = meta.TraceID
	switch {
	case err != nil:
		check.Detail = err.Error()
	case !health.Healthy():
		check.Detail = fmt.Sprintf("status %q, storage %q", health.Status, health.Checks.Storage)
	default:
		check.OK = true
		check.Detail = fmt.Sprintf("healthy in %s", meta.Latency.Round(time.Millisecond))
	}
	return check
}

func checkCollector(ctx context.Context, cfg *config.Config) DoctorCheck {
	check := DoctorCheck{Name: "collector", Target: redact.New().URL(cfg.Tracing.CollectorURL)}

	switch cfg.Tracing.Exporter {
	case "none", "console":
		check.Skipped = true
		check.Detail = fmt.Sprintf("exporter is %q", cfg.Tracing.Exporter)
		return check
	}
	if cfg.Tracing.CollectorURL == "" {
		check.Skipped = true
		check.Detail = "no collector URL, spans are not exported"
		return check
	}

	addr, err := dialAddress(cfg.Tracing.CollectorURL)
	if err != nil {
		check.Detail = err.Error()
		return check
	}

	dialCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	_ = conn.Close()

	check.OK = true
	check.Detail = "accepting connections on " + addr
	return check
}

func checkViewer(ctx context.Context, cfg *config.Config) DoctorCheck {
	check := DoctorCheck{Name: "trace_viewer", Target: cfg.TraceViewer.BaseURL}
	if cfg.TraceViewer.BaseURL == "" {
		check.Skipped = true
		check.Detail = "no trace viewer configured"
		return check
	}

	client, err := httpclient.New(httpclient.Config{Timeout: probeTimeout, UserAgent: "delineate-monitor-doctor"})
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.TraceViewer.BaseURL, nil)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	resp, err := client.Do(req)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		check.Detail = fmt.Sprintf("responded %d", resp.StatusCode)
		return check
	}
	check.OK = true
	check.Detail = fmt.Sprintf("responded %d", resp.StatusCode)
	return check
}

func checkErrorReporting(cfg *config.Config) DoctorCheck {
	check := DoctorCheck{Name: "error_reporting"}
	if cfg.ErrorReporting.DSN == "" {
		check.Skipped = true
		check.Detail = "SENTRY_DSN not set"
		return check
	}
	u, err := url.Parse(cfg.ErrorReporting.DSN)
	if err != nil || u.Host == "" {
		check.Detail = "DSN is not a valid URL"
		return check
	}
	check.Target = u.Host
	check.OK = true
	check.Detail = "environment " + cfg.ErrorReporting.Environment
	return check
}

// dialAddress turns a collector URL into host:port, filling in the scheme's
// default port.
func dialAddress(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid collector URL: %w", err)
	}
	if u.Host == "" {
		return "", errors.New("collector URL has no host")
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

func configRecommendation(err error) string {
	if uv := monitorerrors.UserVisible(err); uv != nil && uv.Suggestion() != "" {
		return uv.Suggestion()
	}
	return "Fix the configuration file or the DELINEATE_* environment variables."
}

func recommendationFor(c DoctorCheck) string {
	switch c.Name {
	case "backend":
		return fmt.Sprintf("Start the download service or point DELINEATE_API_BASE_URL at it (now %s).", c.Target)
	case "collector":
		return "Start the OpenTelemetry collector or set DELINEATE_OTEL_EXPORTER=none."
	case "trace_viewer":
		return "Start Jaeger or update DELINEATE_JAEGER_UI_URL."
	case "error_reporting":
		return "Check SENTRY_DSN."
	}
	return c.Name + " check failed"
}

// outputDoctorText outputs results in human-readable format
func outputDoctorText(cmd *cobra.Command, result DoctorResult) {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w, shared.Header.Render("Monitor Health Check"))
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Configuration:")
	path := result.ConfigPath
	if !result.ConfigExists {
		path += " (not found, using defaults and environment)"
	}
	fmt.Fprintln(w, "  "+shared.RenderKV("Path", path))
	if result.ConfigValid {
		fmt.Fprintln(w, "  "+shared.RenderKV("Valid", "Yes"))
	} else {
		fmt.Fprintln(w, "  "+shared.RenderKV("Valid", "No"))
		fmt.Fprintln(w, "  "+shared.RenderKV("Error", result.ConfigError))
	}
	fmt.Fprintln(w)

	if len(result.Checks) > 0 {
		fmt.Fprintln(w, "Dependencies:")
		for _, c := range result.Checks {
			label := statusLabel(c.OK)
			if c.Skipped {
				label = "SKIPPED"
			}
			line := fmt.Sprintf("  %s [%s]", c.Name, label)
			if c.Target != "" {
				line += " " + shared.Muted.Render(c.Target)
			}
			fmt.Fprintln(w, line)
			if c.Detail != "" {
				fmt.Fprintf(w, "    %s\n", c.Detail)
			}
		}
		fmt.Fprintln(w)
	}

	if len(result.Recommendations) > 0 {
		fmt.Fprintln(w, "Recommendations:")
		for _, rec := range result.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
		fmt.Fprintln(w)
	}

	if result.OverallHealthy {
		fmt.Fprintln(w, "Overall Status: "+shared.RenderOK("Healthy"))
	} else {
		fmt.Fprintln(w, "Overall Status: "+shared.RenderError("Issues Found"))
	}
}
