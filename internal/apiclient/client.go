package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Client exposes the backend endpoints.
type Client struct {
	baseURL string
	exec    *Executor
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, exec *Executor) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		exec:    exec,
	}
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (HealthResponse, Meta, error) {
	return Call[HealthResponse](ctx, c.exec, c.HealthRequest())
}

// DownloadCheck calls POST /v1/download/check, adding sentry_test=true to
// the query when requested.
func (c *Client) DownloadCheck(ctx context.Context, req DownloadCheckRequest) (DownloadCheckResponse, Meta, error) {
	return Call[DownloadCheckResponse](ctx, c.exec, c.CheckRequest(req))
}

// DownloadStart calls POST /v1/download/start.
func (c *Client) DownloadStart(ctx context.Context, req DownloadStartRequest) (DownloadStartResponse, Meta, error) {
	return Call[DownloadStartResponse](ctx, c.exec, c.StartRequest(req))
}

// HealthRequest describes the health call, for use with Go.
func (c *Client) HealthRequest() Request {
	return Request{Method: http.MethodGet, URL: c.baseURL + "/health"}
}

// CheckRequest describes a download check, for use with Go.
func (c *Client) CheckRequest(req DownloadCheckRequest) Request {
	u := c.baseURL + "/v1/download/check"
	if req.SentryTest {
		u += "?" + url.Values{"sentry_test": {"true"}}.Encode()
	}
	return Request{Method: http.MethodPost, URL: u, Body: req}
}

// StartRequest describes a download start, for use with Go.
func (c *Client) StartRequest(req DownloadStartRequest) Request {
	return Request{Method: http.MethodPost, URL: c.baseURL + "/v1/download/start", Body: req}
}

// Executor returns the executor the client sends requests with.
func (c *Client) Executor() *Executor {
	return c.exec
}
