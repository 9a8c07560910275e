package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request describes one backend call.
type Request struct {
	// Method defaults to GET.
	Method string

	// URL is the absolute request URL.
	URL string

	// Body is JSON-encoded unless it is already []byte or json.RawMessage.
	Body any

	// Header values override the defaults, including Content-Type.
	Header http.Header
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

// Meta is what the executor learned about a call, returned on success and
// failure alike.
type Meta struct {
	// StatusCode is 0 when no response was received.
	StatusCode int `json:"status_code,omitempty"`

	// TraceID is the hex trace ID of the call's span.
	TraceID string `json:"trace_id,omitempty"`

	// RequestID is the backend's x-request-id, if it sent one.
	RequestID string `json:"request_id,omitempty"`

	// Latency is measured from sending the request until the response
	// headers arrive, or until the transport failed.
	Latency time.Duration `json:"-"`
}

func (r Request) build(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	switch b := r.Body.(type) {
	case nil:
	case []byte:
		body = bytes.NewReader(b)
	case json.RawMessage:
		body = bytes.NewReader(b)
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, r.method(), r.URL, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, values := range r.Header {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return req, nil
}
