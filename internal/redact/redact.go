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

// Package redact masks credentials and personal data in values that leave
// the process: error reports, their request context and logged settings.
package redact

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Placeholder replaces values whose key marks them as sensitive.
const Placeholder = "[REDACTED]"

// Pattern defines a redaction pattern with a name and regular expression.
type Pattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// StandardPatterns returns the default set of redaction patterns. Order
// matters: URL credentials are replaced before the email pattern can match
// them.
func StandardPatterns() []Pattern {
	return []Pattern{
		{
			Name:        "url_credentials",
			Regex:       regexp.MustCompile(`(?i)\b(https?://)[^/\s:@]+(:[^/\s@]*)?@`),
			Replacement: "${1}[REDACTED]@",
		},
		{
			Name:        "jwt",
			Regex:       regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),
			Replacement: "[REDACTED-JWT]",
		},
		{
			Name:        "bearer_token",
			Regex:       regexp.MustCompile(`(?i)(bearer\s+)([a-zA-Z0-9_\-\.]{20,})`),
			Replacement: "${1}[REDACTED]",
		},
		{
			Name:        "api_key",
			Regex:       regexp.MustCompile(`(?i)(api[_-]?key|apikey)["\s:=]+([a-zA-Z0-9_\-]{16,})`),
			Replacement: "${1}=[REDACTED]",
		},
		{
			Name:        "password",
			Regex:       regexp.MustCompile(`(?i)(password|passwd|pwd)["\s:=]+([^\s"&,]+)`),
			Replacement: "${1}=[REDACTED]",
		},
		{
			Name:        "generic_secret",
			Regex:       regexp.MustCompile(`(?i)(secret|token)["\s:=]+([a-zA-Z0-9_\-]{16,})`),
			Replacement: "${1}=[REDACTED]",
		},
		{
			Name:        "email",
			Regex:       regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
			Replacement: "[REDACTED-EMAIL]",
		},
	}
}

// sensitiveKeys are key fragments, matched case-insensitively, whose values
// are replaced outright.
var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token",
	"api_key", "apikey",
	"private_key",
	"authorization", "auth",
	"cookie", "session",
	"credential", "dsn",
}

// Redactor applies redaction patterns. A Redactor is immutable and safe for
// concurrent use.
type Redactor struct {
	patterns []Pattern
}

// New creates a redactor using StandardPatterns.
func New() *Redactor {
	return &Redactor{patterns: StandardPatterns()}
}

// NewWithPatterns creates a redactor with custom patterns.
func NewWithPatterns(patterns []Pattern) *Redactor {
	return &Redactor{patterns: patterns}
}

// String applies redaction patterns to s.
func (r *Redactor) String(s string) string {
	for _, pattern := range r.patterns {
		s = pattern.Regex.ReplaceAllString(s, pattern.Replacement)
	}
	return s
}

// SensitiveKey reports whether key names a secret.
func SensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}

// Headers returns a copy of h with sensitive header values replaced and the
// rest passed through String.
func (r *Redactor) Headers(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if SensitiveKey(k) {
			out[k] = Placeholder
			continue
		}
		out[k] = r.String(v)
	}
	return out
}

// URL masks userinfo and sensitive query values in raw. Unparseable input is
// passed through String instead.
func (r *Redactor) URL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return r.String(raw)
	}
	if u.User != nil {
		u.User = url.User(Placeholder)
	}
	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			if SensitiveKey(k) {
				q.Set(k, Placeholder)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Value returns a redacted copy of v as generic JSON data: maps, slices and
// scalars. Map entries with sensitive keys are replaced and strings are
// passed through String. Values that cannot be encoded as JSON are
// formatted and redacted as a string.
func (r *Redactor) Value(v any) any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return r.String(fmt.Sprintf("%v", v))
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return r.String(string(data))
	}
	return r.walk(generic)
}

func (r *Redactor) walk(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, inner := range val {
			if SensitiveKey(k) {
				val[k] = Placeholder
				continue
			}
			val[k] = r.walk(inner)
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = r.walk(inner)
		}
		return val
	case string:
		return r.String(val)
	default:
		return val
	}
}
