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

	"github.com/spf13/cobra"

	"github.com/tombee/delineate-monitor/internal/apiclient"
	"github.com/tombee/delineate-monitor/internal/commands/completion"
	"github.com/tombee/delineate-monitor/internal/commands/shared"
	"github.com/tombee/delineate-monitor/internal/jobs"
)

// NewStartCommand creates the start command
func NewStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use: "start <file-id>",
		Annotations: map[string]string{
			"group": "downloads",
		},
		Short: "Start a download job",
		Long: `Send one traced download start to the backend and print the job it created.

Exit codes match 'delineate-monitor check'.`,
		Example: `  delineate-monitor start 70000
  delineate-monitor start 70000 --json`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.CompleteFileID,
		RunE: func(cmd *cobra.Command, args []string) error {
			fileID, err := parseFileID(args[0])
			if err != nil {
				return err
			}
			return shared.RunWithRuntime(cmd.Context(), func(ctx context.Context, rt *shared.Runtime) error {
				resp, meta, err := rt.Client.DownloadStart(ctx, apiclient.DownloadStartRequest{FileID: fileID})
				if err != nil {
					job := jobs.FromError(jobs.KindStart, fileID, err, meta).WithViewer(rt.Config.TraceViewer.BaseURL)
					return failJob(cmd, job, shared.NewCallError("download start failed", err))
				}
				return printJob(cmd, "start", jobs.FromStart(resp, meta).WithViewer(rt.Config.TraceViewer.BaseURL))
			})
		},
	}

	return cmd
}
