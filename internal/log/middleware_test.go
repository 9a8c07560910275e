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

package log

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveLogged(t *testing.T, handler http.HandlerFunc, req *http.Request) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	logger := New(&Config{Level: "debug", Format: FormatJSON, Output: &buf})

	AccessLog(logger)(handler).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON output: %v (%q)", err, buf.String())
	}
	return entry
}

func TestAccessLog_Success(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/metrics?x=1", nil)
	entry := serveLogged(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}, req)

	if entry["level"] != "INFO" {
		t.Errorf("expected INFO level, got: %v", entry["level"])
	}
	if entry["path"] != "/api/metrics" {
		t.Errorf("expected path without query, got: %v", entry["path"])
	}
	if entry["status"] != float64(200) {
		t.Errorf("expected status 200, got: %v", entry["status"])
	}
	if entry["bytes"] != float64(5) {
		t.Errorf("expected 5 bytes, got: %v", entry["bytes"])
	}
	if _, ok := entry[DurationKey]; !ok {
		t.Errorf("expected %s field", DurationKey)
	}
}

func TestAccessLog_Levels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusNoContent, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusBadGateway, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(strings.ToLower(http.StatusText(tt.status)), func(t *testing.T) {
			entry := serveLogged(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}, httptest.NewRequest(http.MethodPost, "/api/downloads/check", nil))

			if entry["level"] != tt.level {
				t.Errorf("expected %s, got: %v", tt.level, entry["level"])
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("expected status %d, got: %v", tt.status, entry["status"])
			}
		})
	}
}

func TestAccessLog_RequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	entry := serveLogged(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", "assigned-1")
	}, req)
	if entry[RequestIDKey] != "assigned-1" {
		t.Errorf("expected response request id, got: %v", entry[RequestIDKey])
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "incoming-1")
	entry = serveLogged(t, func(w http.ResponseWriter, r *http.Request) {}, req)
	if entry[RequestIDKey] != "incoming-1" {
		t.Errorf("expected request header id, got: %v", entry[RequestIDKey])
	}
}
