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

	"github.com/spf13/cobra"

	"github.com/tombee/delineate-monitor/internal/commands/shared"
	"github.com/tombee/delineate-monitor/internal/config"
)

// ValidationResult represents the result of config validation.
type ValidationResult struct {
	shared.JSONResponse
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewValidateCommand creates the 'config validate' subcommand.
func NewValidateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Long: `Validate the configuration after the config file and environment variables
have been applied.

Checks performed:
  - YAML syntax and unknown keys
  - URLs, exporter type, sample rate and window size
  - Settings that silently disable telemetry (warnings)

With --strict, warnings are treated as errors.`,
		Example: `  # Validate configuration
  delineate-monitor config validate

  # Validate a specific file with warnings as errors
  delineate-monitor config validate --config ./monitor.yaml --strict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")

	return cmd
}

func runValidate(cmd *cobra.Command, strict bool) error {
	result := ValidationResult{JSONResponse: shared.NewJSONResponse("config validate")}

	cfg, err := config.Load(shared.GetConfigPath())
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	} else {
		result.Warnings = configWarnings(cfg)
	}
	if strict {
		result.Errors = append(result.Errors, result.Warnings...)
	}
	result.Valid = len(result.Errors) == 0
	result.Success = result.Valid

	if shared.GetJSON() {
		if err := shared.EmitJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		outputValidationText(cmd, result)
	}

	if !result.Valid {
		return shared.NewInvalidInputError("configuration is invalid", err)
	}
	return nil
}

// configWarnings flags settings that are valid but probably not intended.
func configWarnings(cfg *config.Config) []string {
	var warnings []string

	exporting := cfg.Tracing.Exporter == "otlp" || cfg.Tracing.Exporter == "otlp-http"
	if exporting && cfg.Tracing.CollectorURL == "" {
		warnings = append(warnings, "Exporter is "+cfg.Tracing.Exporter+" but no collector URL is set; spans are not exported. Set DELINEATE_OTEL_COLLECTOR_URL.")
	}
	if cfg.Tracing.SampleRate == 0 {
		warnings = append(warnings, "Sample rate is 0; no spans will be recorded.")
	}
	if cfg.ErrorReporting.DSN == "" {
		warnings = append(warnings, "SENTRY_DSN is not set; failed calls are not reported.")
	}
	if cfg.TraceViewer.BaseURL == "" {
		warnings = append(warnings, "No trace viewer URL; trace links are not shown.")
	}
	return warnings
}

func outputValidationText(cmd *cobra.Command, result ValidationResult) {
	w := cmd.OutOrStdout()

	if result.Valid {
		fmt.Fprintln(w, shared.RenderOK(shared.SymbolOK+" Configuration is valid"))
	} else {
		fmt.Fprintln(w, shared.RenderError(shared.SymbolError+" Configuration is invalid"))
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "  %s %s\n", shared.RenderWarn(shared.SymbolWarn), warn)
		}
	}
}
