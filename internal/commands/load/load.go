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

package load

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tombee/delineate-monitor/internal/apiclient"
	"github.com/tombee/delineate-monitor/internal/commands/completion"
	"github.com/tombee/delineate-monitor/internal/commands/shared"
	"github.com/tombee/delineate-monitor/internal/metrics"
	monitorerrors "github.com/tombee/delineate-monitor/pkg/errors"
)

// Call modes
const (
	ModeCheck  = "check"
	ModeStart  = "start"
	ModeHealth = "health"
)

// Options configures a load run.
type Options struct {
	Mode        string
	FileID      int64
	Count       int
	Concurrency int

	// RPS caps the rate calls are started at. Zero means unlimited.
	RPS float64
}

// Result summarizes a load run.
type Result struct {
	shared.JSONResponse
	Mode        string           `json:"mode"`
	Requests    int              `json:"requests"`
	Succeeded   int64            `json:"succeeded"`
	Failed      int64            `json:"failed"`
	ElapsedMs   int64            `json:"elapsed_ms"`
	Throughput  float64          `json:"throughput_rps"`
	Concurrency int              `json:"concurrency"`
	Metrics     metrics.Snapshot `json:"metrics"`
}

// NewCommand creates the load command
func NewCommand() *cobra.Command {
	opts := Options{}

	cmd := &cobra.Command{
		Use: "load",
		Annotations: map[string]string{
			"group": "diagnostics",
		},
		Short: "Fire concurrent traced calls at the backend",
		Long: `Send a batch of traced calls to the backend with bounded concurrency and an
optional rate limit, then print the rolling metrics the calls produced.

Every call gets its own trace. Failed calls are counted, reported to error
tracking and do not stop the run.

Exit codes:
  0 - Every call succeeded
  1 - At least one call failed
  2 - Invalid flags`,
		Example: `  # 100 download checks, 10 at a time
  delineate-monitor load --count 100 --concurrency 10

  # Health calls at 5 per second
  delineate-monitor load --mode health --count 50 --rps 5

  # Read the success rate from the summary
  delineate-monitor load --json | jq '.metrics.success_rate'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return shared.NewInvalidInputError("invalid load options", err)
			}
			return shared.RunWithRuntime(cmd.Context(), func(ctx context.Context, rt *shared.Runtime) error {
				spinner := shared.NewSpinner()
				if !shared.GetJSON() && !shared.GetQuiet() {
					spinner.Start(fmt.Sprintf("Sending %d %s calls", opts.Count, opts.Mode))
				}
				result, err := Run(ctx, rt.Client, rt.Aggregator, opts, func(done, total int) {
					spinner.Update(fmt.Sprintf("%d/%d %s calls", done, total, opts.Mode))
				})
				spinner.Stop()
				if err != nil {
					return shared.NewExecutionError("load run interrupted", err)
				}
				if err := output(cmd, result); err != nil {
					return err
				}
				if result.Failed > 0 {
					return shared.NewExecutionError(fmt.Sprintf("%d of %d calls failed", result.Failed, result.Requests), nil)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", ModeCheck, "Endpoint to call: check, start or health")
	cmd.Flags().Int64Var(&opts.FileID, "file-id", 70000, "File ID sent by check and start calls")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 20, "Number of calls")
	cmd.Flags().IntVarP(&opts.Concurrency, "concurrency", "c", 5, "Maximum calls in flight")
	cmd.Flags().Float64Var(&opts.RPS, "rps", 0, "Maximum calls started per second (0 for unlimited)")
	_ = cmd.RegisterFlagCompletionFunc("mode", completion.CompleteLoadModes)

	return cmd
}

// Validate checks the options before any call is made.
func (o Options) Validate() error {
	switch o.Mode {
	case ModeCheck, ModeStart, ModeHealth:
	default:
		return &monitorerrors.ValidationError{Field: "mode", Message: fmt.Sprintf("unknown mode %q", o.Mode), Hint: "Use check, start or health"}
	}
	if o.Mode != ModeHealth && o.FileID <= 0 {
		return &monitorerrors.ValidationError{Field: "file-id", Message: "must be a positive integer"}
	}
	if o.Count <= 0 {
		return &monitorerrors.ValidationError{Field: "count", Message: "must be at least 1"}
	}
	if o.Concurrency <= 0 {
		return &monitorerrors.ValidationError{Field: "concurrency", Message: "must be at least 1"}
	}
	if o.RPS < 0 {
		return &monitorerrors.ValidationError{Field: "rps", Message: "must not be negative"}
	}
	return nil
}

// Run sends opts.Count calls through client and summarizes them using agg,
// which must be the aggregator the client's executor reports to. progress,
// if set, is called after each call with the number finished so far.
//
// Individual call failures are counted, not returned. Run returns an error
// only when ctx ends before every call has been started.
func Run(ctx context.Context, client *apiclient.Client, agg *metrics.Aggregator, opts Options, progress func(done, total int)) (Result, error) {
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	limiter := rate.NewLimiter(limit, 1)

	var succeeded, failed, finished atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	start := time.Now()
	var waitErr error
	for i := 0; i < opts.Count; i++ {
		if waitErr = limiter.Wait(gctx); waitErr != nil {
			break
		}
		g.Go(func() error {
			if err := fire(gctx, client, opts)(gctx); err != nil {
				failed.Add(1)
			} else {
				succeeded.Add(1)
			}
			n := finished.Add(1)
			if progress != nil {
				progress(int(n), opts.Count)
			}
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	result := Result{
		JSONResponse: shared.NewJSONResponse("load"),
		Mode:         opts.Mode,
		Requests:     int(finished.Load()),
		Succeeded:    succeeded.Load(),
		Failed:       failed.Load(),
		ElapsedMs:    elapsed.Milliseconds(),
		Concurrency:  opts.Concurrency,
		Metrics:      agg.Snapshot(),
	}
	if elapsed > 0 {
		result.Throughput = float64(result.Requests) / elapsed.Seconds()
	}
	result.Success = result.Failed == 0 && waitErr == nil
	return result, waitErr
}

// fire starts one call and returns a function awaiting its outcome.
func fire(ctx context.Context, client *apiclient.Client, opts Options) func(context.Context) error {
	exec := client.Executor()
	switch opts.Mode {
	case ModeHealth:
		return await(apiclient.Go[apiclient.HealthResponse](ctx, exec, client.HealthRequest()))
	case ModeStart:
		return await(apiclient.Go[apiclient.DownloadStartResponse](ctx, exec,
			client.StartRequest(apiclient.DownloadStartRequest{FileID: opts.FileID})))
	default:
		return await(apiclient.Go[apiclient.DownloadCheckResponse](ctx, exec,
			client.CheckRequest(apiclient.DownloadCheckRequest{FileID: opts.FileID})))
	}
}

func await[T any](f *apiclient.Future[T]) func(context.Context) error {
	return func(ctx context.Context) error {
		_, _, err := f.Await(ctx)
		return err
	}
}

func output(cmd *cobra.Command, result Result) error {
	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), result)
	}

	w := cmd.OutOrStdout()
	title := fmt.Sprintf("%d %s calls in %v", result.Requests, result.Mode, time.Duration(result.ElapsedMs)*time.Millisecond)
	if result.Failed == 0 {
		fmt.Fprintln(w, shared.RenderOK(title))
	} else {
		fmt.Fprintln(w, shared.RenderWarn(title))
	}
	fmt.Fprintln(w, "  "+shared.RenderKV("Succeeded", fmt.Sprintf("%d", result.Succeeded)))
	fmt.Fprintln(w, "  "+shared.RenderKV("Failed", fmt.Sprintf("%d", result.Failed)))
	fmt.Fprintln(w, "  "+shared.RenderKV("Throughput", fmt.Sprintf("%.1f calls/s", result.Throughput)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, shared.Header.Render("Rolling metrics"))
	fmt.Fprintln(w, "  "+shared.RenderKV("Total requests", fmt.Sprintf("%d", result.Metrics.Total)))
	fmt.Fprintln(w, "  "+shared.RenderKV("Success rate", fmt.Sprintf("%.1f%%", result.Metrics.SuccessRate)))
	fmt.Fprintln(w, "  "+shared.RenderKV("Average latency", fmt.Sprintf("%.1f ms (last %d)", result.Metrics.AverageLatencyMs, result.Metrics.WindowLen)))
	return nil
}
