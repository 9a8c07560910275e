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

package download

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tombee/delineate-monitor/internal/apiclient"
	"github.com/tombee/delineate-monitor/internal/commands/completion"
	"github.com/tombee/delineate-monitor/internal/commands/shared"
	"github.com/tombee/delineate-monitor/internal/jobs"
	monitorerrors "github.com/tombee/delineate-monitor/pkg/errors"
)

// NewCheckCommand creates the check command
func NewCheckCommand() *cobra.Command {
	var sentryTest bool

	cmd := &cobra.Command{
		Use: "check <file-id>",
		Annotations: map[string]string{
			"group": "downloads",
		},
		Short: "Check whether a file is ready to download",
		Long: `Send one traced download check to the backend and print the resulting job.

The request carries a W3C traceparent header, so the backend's spans join the
same trace. The trace link points at the configured trace viewer.

Exit codes:
  0 - Check succeeded
  2 - Invalid file ID
  4 - Backend returned an error
  5 - Backend unreachable`,
		Example: `  # Check file 70000
  delineate-monitor check 70000

  # Trigger a test error on the backend to verify error reporting
  delineate-monitor check 70000 --sentry-test

  # Extract the trace ID for scripting
  delineate-monitor check 70000 --json | jq -r '.job.trace_id'`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.CompleteFileID,
		RunE: func(cmd *cobra.Command, args []string) error {
			fileID, err := parseFileID(args[0])
			if err != nil {
				return err
			}
			return shared.RunWithRuntime(cmd.Context(), func(ctx context.Context, rt *shared.Runtime) error {
				resp, meta, err := rt.Client.DownloadCheck(ctx, apiclient.DownloadCheckRequest{
					FileID:     fileID,
					SentryTest: sentryTest,
				})
				if err != nil {
					job := jobs.FromError(jobs.KindCheck, fileID, err, meta).WithViewer(rt.Config.TraceViewer.BaseURL)
					return failJob(cmd, job, shared.NewCallError("download check failed", err))
				}
				return printJob(cmd, "check", jobs.FromCheck(resp, meta).WithViewer(rt.Config.TraceViewer.BaseURL))
			})
		},
	}

	cmd.Flags().BoolVar(&sentryTest, "sentry-test", false, "Ask the backend to raise a test error")

	return cmd
}

// parseFileID accepts positive integers only.
func parseFileID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.NewInvalidInputError("invalid file ID", &monitorerrors.ValidationError{
			Field:   "file-id",
			Message: fmt.Sprintf("must be a positive integer, got %q", arg),
			Hint:    "Pass a numeric file ID such as 70000",
		})
	}
	return id, nil
}
