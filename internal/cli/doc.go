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

/*
Package cli provides the root command and shared wiring for the delineate-monitor CLI.

This package creates the main Cobra command tree and handles global concerns like
version information, persistent flags, help output and exit codes. Individual
commands are implemented in the internal/commands subpackages.

# Command Tree

	delineate-monitor
	├── check         Traced download check for one file
	├── start         Traced download start for one file
	├── health        Traced backend health check
	├── load          Concurrent traced calls with rolling metrics
	├── doctor        Check configuration and monitoring dependencies
	├── config        Show, locate and validate configuration
	│   ├── show
	│   ├── path
	│   └── validate
	├── serve         Web dashboard
	├── version       Show version
	├── completion    Shell completion scripts
	└── help          Show help (supports --json)

# Usage

From main.go:

	cli.SetVersion(version, commit, date)
	rootCmd := cli.NewRootCommand()
	cli.AddCommands(rootCmd, download.NewCheckCommand(), ...)
	cli.Execute(rootCmd)

# Global Flags

All commands inherit these flags:

	--verbose, -v    Enable debug logging
	--quiet, -q      Suppress non-error output
	--json           Output in JSON format
	--config         Path to config file

# Error Handling

Execute maps failures to exit codes:

  - Exit 0: Success
  - Exit 1: Execution failed
  - Exit 2: Invalid usage or configuration
  - Exit 4: The backend returned an error
  - Exit 5: The backend could not be reached

With --json the error is written to stdout as an envelope carrying an error
code, a suggestion and, for failed calls, the trace ID.
*/
package cli
