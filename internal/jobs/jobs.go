// Package jobs keeps the session's log of user-triggered download calls.
//
// Records are created once per call and never modified. The log lives only
// in memory and is bounded; the oldest records are dropped first.
package jobs

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tombee/delineate-monitor/internal/apiclient"
	"github.com/tombee/delineate-monitor/internal/tracing"
)

// Kind is the backend operation a job record describes.
type Kind string

const (
	KindCheck Kind = "check"
	KindStart Kind = "start"
)

// Status mirrors the backend's job status vocabulary.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// DefaultLimit is the number of records kept when no limit is given.
const DefaultLimit = 100

// Job is one user-triggered call and its result.
type Job struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	FileID    int64     `json:"file_id"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	TraceID   string    `json:"trace_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	TraceURL  string    `json:"trace_url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WithViewer returns a copy of j linked to its trace in the viewer at base.
// No link is set when j has no trace ID or base is empty.
func (j Job) WithViewer(base string) Job {
	if j.TraceID != "" && base != "" {
		j.TraceURL = tracing.ViewerURL(base, j.TraceID)
	}
	return j
}

// now is replaced in tests.
var now = time.Now

// FromCheck builds the record for a successful download check.
func FromCheck(resp apiclient.DownloadCheckResponse, meta apiclient.Meta) Job {
	return Job{
		ID:        uuid.NewString(),
		Kind:      KindCheck,
		FileID:    resp.FileID,
		Status:    parseStatus(resp.Status),
		Message:   resp.Message,
		TraceID:   meta.TraceID,
		RequestID: meta.RequestID,
		Timestamp: now(),
	}
}

// FromStart builds the record for a started download; the backend job ID
// becomes the record ID.
func FromStart(resp apiclient.DownloadStartResponse, meta apiclient.Meta) Job {
	id := resp.JobID
	if id == "" {
		id = uuid.NewString()
	}
	return Job{
		ID:        id,
		Kind:      KindStart,
		FileID:    resp.FileID,
		Status:    parseStatus(resp.Status),
		Message:   resp.Message,
		TraceID:   meta.TraceID,
		RequestID: meta.RequestID,
		Timestamp: now(),
	}
}

// FromError builds a failed record. The trace ID comes from the error when
// it carries one, otherwise from meta.
func FromError(kind Kind, fileID int64, err error, meta apiclient.Meta) Job {
	traceID := apiclient.TraceIDOf(err)
	if traceID == "" {
		traceID = meta.TraceID
	}

	requestID := meta.RequestID
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.RequestID != "" {
		requestID = apiErr.RequestID
	}

	return Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		FileID:    fileID,
		Status:    StatusFailed,
		Message:   err.Error(),
		TraceID:   traceID,
		RequestID: requestID,
		Timestamp: now(),
	}
}

func parseStatus(s string) Status {
	switch Status(s) {
	case StatusCompleted, StatusFailed:
		return Status(s)
	default:
		return StatusPending
	}
}

// Store is a bounded, newest-first job log. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	jobs  []Job
	limit int
}

// NewStore creates a store holding at most limit records; limit <= 0
// selects DefaultLimit.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{limit: limit}
}

// Add prepends job and drops the oldest records beyond the limit.
func (s *Store) Add(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append([]Job{job}, s.jobs...)
	if len(s.jobs) > s.limit {
		s.jobs = s.jobs[:s.limit]
	}
}

// List returns a copy of the records, newest first.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
