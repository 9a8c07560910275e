package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrorBody is the backend's structured error payload.
type ErrorBody struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

// unknownErrorBody stands in for error responses whose body is not an ErrorBody.
func unknownErrorBody() ErrorBody {
	return ErrorBody{Error: "unknown_error", Message: "Unknown error"}
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Body       ErrorBody
	TraceID    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Body.Message != "" {
		return e.Body.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

func (e *APIError) IsUserVisible() bool { return true }
func (e *APIError) UserMessage() string { return e.Error() }
func (e *APIError) ErrorType() string   { return "api" }

// IsRetryable reports whether the status suggests a later attempt may work.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

func (e *APIError) Suggestion() string {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return "Check that the file ID exists"
	case e.StatusCode == http.StatusTooManyRequests:
		return "The backend is rate limiting; lower the request rate"
	case e.StatusCode >= 500 && e.RequestID != "":
		return fmt.Sprintf("Search the backend logs for request id %s", e.RequestID)
	case e.StatusCode >= 500:
		return "Check the backend logs"
	}
	return ""
}

// TransportError means no HTTP response was received.
type TransportError struct {
	Method  string
	URL     string
	TraceID string
	Latency time.Duration
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) IsUserVisible() bool { return true }
func (e *TransportError) UserMessage() string { return e.Error() }
func (e *TransportError) ErrorType() string   { return "transport" }
func (e *TransportError) IsRetryable() bool   { return true }

func (e *TransportError) Suggestion() string {
	if u, err := url.Parse(e.URL); err == nil && u.Host != "" {
		return fmt.Sprintf("Check that the backend is reachable at %s", u.Host)
	}
	return "Check the backend base URL"
}

// DecodeError is a 2xx response whose body could not be decoded.
type DecodeError struct {
	StatusCode int
	TraceID    string
	RequestID  string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %d response: %v", e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) ErrorType() string { return "decode" }
func (e *DecodeError) IsRetryable() bool { return false }

// TraceIDOf returns the trace ID carried by err, looking through wrapping.
func TraceIDOf(err error) string {
	var apiErr *APIError
	var transportErr *TransportError
	var decodeErr *DecodeError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.TraceID
	case errors.As(err, &transportErr):
		return transportErr.TraceID
	case errors.As(err, &decodeErr):
		return decodeErr.TraceID
	}
	return ""
}
