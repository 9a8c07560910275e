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

package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tombee/delineate-monitor/internal/commands/shared"
	"github.com/tombee/delineate-monitor/internal/dashboard"
	"github.com/tombee/delineate-monitor/internal/jobs"
	"github.com/tombee/delineate-monitor/internal/log"
)

// NewCommand creates the serve command
func NewCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use: "serve",
		Annotations: map[string]string{
			"group": "dashboard",
		},
		Short: "Run the monitoring dashboard",
		Long: `Serve the web dashboard: backend health polled in the background, download
check and start forms, the job list with trace links, rolling metrics and a
Prometheus /metrics endpoint.

Every dashboard request starts a server span, and the backend call it makes
is a child of that span. The server stops gracefully on SIGINT or SIGTERM.`,
		Example: `  delineate-monitor serve
  delineate-monitor serve --addr 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return shared.RunWithRuntime(ctx, func(ctx context.Context, rt *shared.Runtime) error {
				if cmd.Flags().Changed("addr") {
					rt.Config.Dashboard.Addr = addr
				}
				return serve(ctx, cmd, rt)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")

	return cmd
}

func serve(ctx context.Context, cmd *cobra.Command, rt *shared.Runtime) error {
	ver, _, _ := shared.GetVersion()
	cfg := rt.Config.Dashboard

	srv, err := dashboard.New(dashboard.Options{
		Addr:            cfg.Addr,
		Client:          rt.Client,
		Aggregator:      rt.Aggregator,
		Jobs:            jobs.NewStore(cfg.JobLimit),
		PollInterval:    cfg.PollInterval,
		MetricsHandler:  rt.Provider.MetricsHandler(),
		TracerProvider:  rt.Provider.TracerProvider(),
		ViewerURL:       rt.Config.TraceViewer.BaseURL,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Version:         ver,
		Logger:          log.WithComponent(rt.Logger, "dashboard"),
	})
	if err != nil {
		return shared.NewExecutionError("failed to create dashboard", err)
	}

	if !shared.GetQuiet() && !shared.GetJSON() {
		fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("Dashboard on "+displayAddr(cfg.Addr)))
		fmt.Fprintln(cmd.OutOrStdout(), "  "+shared.RenderKV("Backend", rt.Client.BaseURL()))
	}

	if err := srv.Run(ctx); err != nil {
		return shared.NewExecutionError("dashboard stopped", err)
	}
	return nil
}

// displayAddr turns ":8080" into a clickable URL.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
