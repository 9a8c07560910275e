// Package httpclient builds the HTTP client used for backend calls.
//
// Clients created by New have:
//   - Request logging with sanitized URLs (sensitive parameters redacted)
//   - User-Agent header injection
//   - TLS 1.2 minimum (TLS 1.3 preferred)
//   - Connection pooling sized for concurrent load runs
//
// There is deliberately no retry layer. Each backend call maps to exactly one
// span and one metrics sample, so a retry would have to be a new call made by
// the caller.
//
// # Usage
//
//	cfg := httpclient.DefaultConfig()
//	cfg.UserAgent = "delineate-monitor/1.0"
//	client, err := httpclient.New(cfg)
//	if err != nil {
//	    return err
//	}
//
// # Observability
//
// All requests emit structured logs via log/slog:
//   - Debug level: requests that completed with a status below 400
//   - Warn level: 4xx/5xx responses and transport errors
//   - Fields: method, url (sanitized), status, duration_ms, trace_id, request_id, error
package httpclient
