package download

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/delineate-monitor/internal/commands/shared"
	"github.com/tombee/delineate-monitor/internal/jobs"
)

// jobResponse is the --json envelope for a successful call.
type jobResponse struct {
	shared.JSONResponse
	Job jobs.Job `json:"job"`
}

func printJob(cmd *cobra.Command, command string, job jobs.Job) error {
	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), jobResponse{
			JSONResponse: shared.NewJSONResponse(command),
			Job:          job,
		})
	}
	writeJob(cmd, job)
	return nil
}

// failJob prints the failed job in text mode and returns exitErr. In JSON
// mode the error envelope, which carries the trace ID, is the only output.
func failJob(cmd *cobra.Command, job jobs.Job, exitErr error) error {
	if !shared.GetJSON() && !shared.GetQuiet() {
		writeJob(cmd, job)
	}
	return exitErr
}

func writeJob(cmd *cobra.Command, job jobs.Job) {
	w := cmd.OutOrStdout()

	title := fmt.Sprintf("%s file %d: %s", job.Kind, job.FileID, job.Status)
	switch job.Status {
	case jobs.StatusCompleted:
		fmt.Fprintln(w, shared.RenderOK(title))
	case jobs.StatusFailed:
		fmt.Fprintln(w, shared.RenderError(title))
	default:
		fmt.Fprintln(w, shared.RenderWarn(title))
	}

	fmt.Fprintln(w, "  "+shared.RenderKV("Job ID", job.ID))
	if job.Message != "" {
		fmt.Fprintln(w, "  "+shared.RenderKV("Message", job.Message))
	}
	if job.TraceID != "" {
		fmt.Fprintln(w, "  "+shared.RenderKV("Trace ID", job.TraceID))
	}
	if job.RequestID != "" {
		fmt.Fprintln(w, "  "+shared.RenderKV("Request ID", job.RequestID))
	}
	if job.TraceURL != "" {
		fmt.Fprintln(w, "  "+shared.RenderKV("View Trace", job.TraceURL))
	}
	fmt.Fprintln(w, "  "+shared.RenderKV("Time", job.Timestamp.Format(time.RFC3339)))
}
