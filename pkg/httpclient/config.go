package httpclient

import (
	"fmt"
	"time"
)

// Config configures the HTTP client.
type Config struct {
	// Timeout bounds a whole request including reading the body.
	// Default: 30s. Must be > 0.
	Timeout time.Duration

	// UserAgent is the User-Agent header value.
	// Required. Must be non-empty.
	UserAgent string

	// MaxConnsPerHost caps concurrent connections to the backend.
	// Default: 0 (unlimited).
	MaxConnsPerHost int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		UserAgent: "delineate-monitor/dev",
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}
	if c.MaxConnsPerHost < 0 {
		return fmt.Errorf("max_conns_per_host must be >= 0, got %d", c.MaxConnsPerHost)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required and must be non-empty")
	}
	return nil
}
