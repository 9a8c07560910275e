package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/delineate-monitor/internal/apiclient"
	"github.com/tombee/delineate-monitor/internal/jobs"
	"github.com/tombee/delineate-monitor/internal/tracing"
	monitorerrors "github.com/tombee/delineate-monitor/pkg/errors"
)

type checkRequest struct {
	FileID     int64 `json:"file_id"`
	SentryTest bool  `json:"sentry_test,omitempty"`
}

type startRequest struct {
	FileID int64 `json:"file_id"`
}

type jobFailure struct {
	Error string   `json:"error"`
	Job   jobs.Job `json:"job"`
}

func validateFileID(id int64) error {
	if id <= 0 {
		return &monitorerrors.ValidationError{
			Field:   "file_id",
			Message: "must be a positive integer",
			Hint:    "e.g. 70000",
		}
	}
	return nil
}

// runCheck performs a download check and records the outcome as a job.
func (s *Server) runCheck(ctx context.Context, fileID int64, sentryTest bool) (jobs.Job, error) {
	resp, meta, err := s.opts.Client.DownloadCheck(ctx, apiclient.DownloadCheckRequest{
		FileID:     fileID,
		SentryTest: sentryTest,
	})

	var job jobs.Job
	if err != nil {
		job = jobs.FromError(jobs.KindCheck, fileID, err, meta)
	} else {
		job = jobs.FromCheck(resp, meta)
		if job.FileID == 0 {
			job.FileID = fileID
		}
	}
	job = job.WithViewer(s.opts.ViewerURL)
	s.opts.Jobs.Add(job)
	return job, err
}

// runStart starts a download and records the outcome as a job.
func (s *Server) runStart(ctx context.Context, fileID int64) (jobs.Job, error) {
	resp, meta, err := s.opts.Client.DownloadStart(ctx, apiclient.DownloadStartRequest{FileID: fileID})

	var job jobs.Job
	if err != nil {
		job = jobs.FromError(jobs.KindStart, fileID, err, meta)
	} else {
		job = jobs.FromStart(resp, meta)
		if job.FileID == 0 {
			job.FileID = fileID
		}
	}
	job = job.WithViewer(s.opts.ViewerURL)
	s.opts.Jobs.Add(job)
	return job, err
}

func writeJobResult(w http.ResponseWriter, job jobs.Job, err error) {
	if err != nil {
		writeJSON(w, http.StatusBadGateway, jobFailure{Error: err.Error(), Job: job})
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateFileID(req.FileID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.runCheck(r.Context(), req.FileID, req.SentryTest)
	writeJobResult(w, job, err)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateFileID(req.FileID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.runStart(r.Context(), req.FileID)
	writeJobResult(w, job, err)
}

// handleForm backs the page's form: it runs the chosen action and redirects
// back to the page, where the new job is listed.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	fileID, parseErr := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("file_id")), 10, 64)
	if parseErr != nil {
		fileID = 0
	}
	if err := validateFileID(fileID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch r.PostFormValue("action") {
	case "check":
		_, _ = s.runCheck(r.Context(), fileID, r.PostFormValue("sentry_test") != "")
	case "start":
		_, _ = s.runStart(r.Context(), fileID)
	default:
		http.Error(w, "action must be check or start", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state, ok := s.poller.Last()
	if !ok {
		state = s.poller.Poll(r.Context())
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": s.opts.Jobs.List()})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Aggregator.Snapshot())
}

func (s *Server) handleMetricsReset(w http.ResponseWriter, r *http.Request) {
	s.opts.Aggregator.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := trace.TraceIDFromHex(id); err != nil {
		writeError(w, http.StatusBadRequest, "trace id must be 32 lowercase hex characters")
		return
	}
	if s.opts.ViewerURL == "" {
		writeError(w, http.StatusNotFound, "no trace viewer configured")
		return
	}
	http.Redirect(w, r, tracing.ViewerURL(s.opts.ViewerURL, id), http.StatusFound)
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.opts.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	health, _ := s.poller.Last()
	data := pageData{
		Version:   s.opts.Version,
		Health:    health,
		Jobs:      s.opts.Jobs.List(),
		Metrics:   s.opts.Aggregator.Snapshot(),
		ViewerURL: s.opts.ViewerURL,
		Backend:   s.opts.Client.BaseURL(),
		Refresh:   int(refreshInterval / time.Second),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.render(w, data); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("failed to render page", "error", err)
	}
}
