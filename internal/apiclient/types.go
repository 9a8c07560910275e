package apiclient

import "time"

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string       `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Checks    HealthChecks `json:"checks"`
}

// HealthChecks lists per-dependency results.
type HealthChecks struct {
	Storage string `json:"storage"`
}

// Healthy reports whether the backend considers itself healthy.
func (h HealthResponse) Healthy() bool {
	return h.Status == "healthy"
}

// DownloadCheckRequest asks whether a file is ready.
type DownloadCheckRequest struct {
	FileID int64 `json:"file_id"`

	// SentryTest asks the backend to raise a test error.
	SentryTest bool `json:"-"`
}

// DownloadCheckResponse is returned by POST /v1/download/check.
type DownloadCheckResponse struct {
	FileID         int64  `json:"file_id"`
	Status         string `json:"status"`
	EstimatedDelay *int   `json:"estimated_delay,omitempty"`
	Message        string `json:"message,omitempty"`
}

// DownloadStartRequest starts a download job.
type DownloadStartRequest struct {
	FileID int64 `json:"file_id"`
}

// DownloadStartResponse is returned by POST /v1/download/start.
type DownloadStartResponse struct {
	JobID   string `json:"job_id"`
	FileID  int64  `json:"file_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
