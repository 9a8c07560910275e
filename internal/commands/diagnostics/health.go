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
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/delineate-monitor/internal/commands/shared"
)

// HealthResult contains the backend health check result
type HealthResult struct {
	shared.JSONResponse
	BackendURL string    `json:"backend_url"`
	Healthy    bool      `json:"healthy"`
	Status     string    `json:"status"`
	Storage    string    `json:"storage,omitempty"`
	LatencyMs  float64   `json:"latency_ms"`
	TraceID    string    `json:"trace_id,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	TraceURL   string    `json:"trace_url,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// NewHealthCommand creates the health command
func NewHealthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use: "health",
		Annotations: map[string]string{
			"group": "diagnostics",
		},
		Short: "Check the download service's health",
		Long: `Call the backend's /health endpoint once, inside a new trace, and report
the service status, its storage check and a link to the trace.

Exit codes:
  0 - Backend is healthy
  4 - Backend responded but is not healthy
  5 - Backend unreachable`,
		Example: `  # Basic health check
  delineate-monitor health

  # Use in CI to gate on backend health
  delineate-monitor health --json | jq -e '.healthy'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.RunWithRuntime(cmd.Context(), func(ctx context.Context, rt *shared.Runtime) error {
				return runHealth(ctx, cmd, rt)
			})
		},
	}

	return cmd
}

func runHealth(ctx context.Context, cmd *cobra.Command, rt *shared.Runtime) error {
	health, meta, err := rt.Client.Health(ctx)
	if err != nil {
		if !shared.GetJSON() && !shared.GetQuiet() && meta.TraceID != "" {
			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderKV("View Trace", rt.ViewerURL(meta.TraceID)))
		}
		return shared.NewCallError("health check failed", err)
	}

	result := HealthResult{
		JSONResponse: shared.NewJSONResponse("health"),
		BackendURL:   rt.Client.BaseURL(),
		Healthy:      health.Healthy(),
		Status:       health.Status,
		Storage:      health.Checks.Storage,
		LatencyMs:    float64(meta.Latency) / float64(time.Millisecond),
		TraceID:      meta.TraceID,
		RequestID:    meta.RequestID,
		TraceURL:     rt.ViewerURL(meta.TraceID),
		CheckedAt:    health.Timestamp,
	}
	result.Success = result.Healthy

	if shared.GetJSON() {
		if err := shared.EmitJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		outputHealthText(cmd, result)
	}

	if !result.Healthy {
		return &shared.ExitError{
			Code:    shared.ExitAPIError,
			Message: fmt.Sprintf("backend reported status %q", result.Status),
		}
	}
	return nil
}

// outputHealthText outputs results in human-readable format
func outputHealthText(cmd *cobra.Command, result HealthResult) {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w, shared.Header.Render("Backend Health"))
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w, "  "+shared.RenderKV("URL", result.BackendURL))
	fmt.Fprintf(w, "  %s %s\n", shared.RenderKV("Status", result.Status), shared.RenderStatus(result.Healthy, statusLabel(result.Healthy)))
	if result.Storage != "" {
		fmt.Fprintln(w, "  "+shared.RenderKV("Storage", result.Storage))
	}
	fmt.Fprintln(w, "  "+shared.RenderKV("Latency", fmt.Sprintf("%.1f ms", result.LatencyMs)))
	if result.TraceID != "" {
		fmt.Fprintln(w, "  "+shared.RenderKV("Trace ID", result.TraceID))
	}
	if result.RequestID != "" {
		fmt.Fprintln(w, "  "+shared.RenderKV("Request ID", result.RequestID))
	}
	if result.TraceURL != "" {
		fmt.Fprintln(w, "  "+shared.RenderKV("View Trace", result.TraceURL))
	}
}

func statusLabel(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAILED"
}
