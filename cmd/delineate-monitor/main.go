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

package main

import (
	"github.com/tombee/delineate-monitor/internal/cli"
	"github.com/tombee/delineate-monitor/internal/commands/completion"
	configcmd "github.com/tombee/delineate-monitor/internal/commands/config"
	"github.com/tombee/delineate-monitor/internal/commands/diagnostics"
	"github.com/tombee/delineate-monitor/internal/commands/download"
	"github.com/tombee/delineate-monitor/internal/commands/load"
	"github.com/tombee/delineate-monitor/internal/commands/serve"
	versioncmd "github.com/tombee/delineate-monitor/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()

	cli.AddCommands(rootCmd,
		// Download calls
		download.NewCheckCommand(),
		download.NewStartCommand(),

		// Diagnostics
		diagnostics.NewHealthCommand(),
		diagnostics.NewDoctorCommand(),
		configcmd.NewConfigCommand(),
		load.NewCommand(),
		versioncmd.NewVersionCommand(),
		completion.NewCommand(),

		// Dashboard
		serve.NewCommand(),
	)

	// Custom help command with JSON support
	rootCmd.SetHelpCommand(cli.NewHelpCommand(rootCmd))

	cli.Execute(rootCmd)
}
