package httpclient

import (
	"net/url"
	"strings"
)

// sensitiveParams are query parameter name fragments redacted from logs,
// matched case-insensitively.
var sensitiveParams = []string{
	"api_key",
	"apikey",
	"token",
	"password",
	"auth",
	"secret",
	"key",
	"credential",
	"dsn",
}

const redacted = "[REDACTED]"

// sanitizeURL returns u as a string with sensitive query values and any
// userinfo password replaced.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	safe := *u
	if safe.User != nil {
		if _, hasPassword := safe.User.Password(); hasPassword {
			safe.User = url.UserPassword(safe.User.Username(), redacted)
		}
	}

	if safe.RawQuery != "" {
		q := safe.Query()
		for param := range q {
			if isSensitiveParam(param) {
				q.Set(param, redacted)
			}
		}
		safe.RawQuery = q.Encode()
	}

	return safe.String()
}

func isSensitiveParam(param string) bool {
	lower := strings.ToLower(param)
	for _, sensitive := range sensitiveParams {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
