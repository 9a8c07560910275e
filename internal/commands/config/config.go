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

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/delineate-monitor/internal/commands/shared"
	"github.com/tombee/delineate-monitor/internal/config"
	"github.com/tombee/delineate-monitor/internal/redact"
)

// ShowResult is the JSON form of 'config show'.
type ShowResult struct {
	shared.JSONResponse
	ConfigPath string         `json:"config_path"`
	FileLoaded bool           `json:"file_loaded"`
	Config     *config.Config `json:"config"`
}

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use: "config",
		Annotations: map[string]string{
			"group": "diagnostics",
		},
		Short: "View and validate configuration",
		Long: `View and validate the monitor's configuration.

Subcommands:
  show     - Display the effective configuration
  path     - Show config file location
  validate - Check the effective configuration`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigPathCommand())
	cmd.AddCommand(NewValidateCommand())

	// If no subcommand provided, default to 'show'
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runConfigShow(cmd, args)
	}

	return cmd
}

// newConfigShowCommand creates the 'config show' subcommand
func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Display the configuration after defaults, the config file and environment
variables have been applied.

Secrets (the Sentry DSN, collector credentials and headers) are redacted.
Use --json for machine-readable output.`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	}
}

// newConfigPathCommand creates the 'config path' subcommand
func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file location",
		Long:  `Display the path of the configuration file that is read when --config is not given.`,
		Args:  cobra.NoArgs,
		RunE:  runConfigPath,
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfgPath, err := resolvePath()
	if err != nil {
		return err
	}

	cfg, err := config.Load(shared.GetConfigPath())
	if err != nil {
		return shared.NewInvalidInputError("failed to load config", err)
	}
	masked := maskSensitiveConfig(cfg)

	_, statErr := os.Stat(cfgPath)
	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), ShowResult{
			JSONResponse: shared.NewJSONResponse("config show"),
			ConfigPath:   cfgPath,
			FileLoaded:   statErr == nil,
			Config:       masked,
		})
	}

	w := cmd.OutOrStdout()
	source := cfgPath
	if statErr != nil {
		source += " (not found, defaults and environment only)"
	}
	fmt.Fprintf(w, "Configuration: %s\n", source)
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(masked); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return encoder.Close()
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	cfgPath, err := resolvePath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cfgPath)
	return nil
}

// resolvePath returns --config, or the default location.
func resolvePath() (string, error) {
	if p := shared.GetConfigPath(); p != "" {
		return p, nil
	}
	p, err := config.ConfigPath()
	if err != nil {
		return "", shared.NewExecutionError("failed to determine config path", err)
	}
	return p, nil
}

// maskSensitiveConfig returns a copy of cfg with secrets redacted.
func maskSensitiveConfig(cfg *config.Config) *config.Config {
	r := redact.New()
	masked := *cfg

	if masked.ErrorReporting.DSN != "" {
		masked.ErrorReporting.DSN = r.URL(masked.ErrorReporting.DSN)
	}
	masked.Tracing.CollectorURL = r.URL(masked.Tracing.CollectorURL)
	masked.Backend.BaseURL = r.URL(masked.Backend.BaseURL)
	masked.TraceViewer.BaseURL = r.URL(masked.TraceViewer.BaseURL)
	if masked.Tracing.Headers != nil {
		masked.Tracing.Headers = r.Headers(masked.Tracing.Headers)
	}
	return &masked
}
