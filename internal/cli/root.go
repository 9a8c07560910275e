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

package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/tombee/delineate-monitor/internal/commands/shared"
)

// Command groups shown in help
var groups = []*cobra.Group{
	{ID: "downloads", Title: "Download Commands:"},
	{ID: "diagnostics", Title: "Diagnostics:"},
	{ID: "dashboard", Title: "Dashboard:"},
}

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for delineate-monitor
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delineate-monitor",
		Short: "delineate-monitor - trace and watch the Delineate download service",
		Long: `delineate-monitor calls the Delineate download service with distributed
tracing, keeps rolling success and latency metrics, reports failures to error
tracking and links every call to its trace in the trace viewer.

Run 'delineate-monitor health' to check the backend.
Run 'delineate-monitor serve' to open the dashboard.

Configuration is read from ~/.config/delineate-monitor/config.yaml (or
--config), then DELINEATE_* environment variables.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			shared.ConfigureStyles()
		},
	}

	// Get flag pointers from shared package
	verbose, quiet, json, config := shared.RegisterFlagPointers()

	// Add global flags
	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(json, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(config, "config", "", "Path to config file (default: ~/.config/delineate-monitor/config.yaml)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return shared.NewInvalidInputError(err.Error(), nil)
	})

	cmd.AddGroup(groups...)

	return cmd
}

// AddCommands attaches subcommands to root, placing each in the help group
// named by its "group" annotation.
func AddCommands(root *cobra.Command, cmds ...*cobra.Command) {
	for _, c := range cmds {
		if g := c.Annotations["group"]; g != "" && root.ContainsGroup(g) {
			c.GroupID = g
		}
		root.AddCommand(c)
	}
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// Execute runs root and exits with the matching code when a command fails.
func Execute(root *cobra.Command) {
	cmd, err := root.ExecuteC()
	if err == nil {
		return
	}
	HandleExitError(cmd, err)
}

// HandleExitError handles exit errors with proper exit codes. Errors that
// are not ExitErrors come from cobra's argument parsing.
func HandleExitError(cmd *cobra.Command, err error) {
	var exitErr *shared.ExitError
	if !errors.As(err, &exitErr) {
		err = shared.NewInvalidInputError(err.Error(), nil)
	}
	name := "delineate-monitor"
	if cmd != nil {
		name = cmd.Name()
	}
	shared.HandleExitError(name, err)
}
