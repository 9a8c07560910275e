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

package export

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSOptions selects how the collector certificate is verified.
type TLSOptions struct {
	// CACertPath is a PEM bundle used instead of the system pool.
	CACertPath string

	// SkipVerify disables certificate verification. Development only.
	SkipVerify bool

	// ServerName overrides the SNI name.
	ServerName string
}

// Empty reports whether no TLS customisation was requested.
func (o TLSOptions) Empty() bool {
	return o == TLSOptions{}
}

// BuildTLSConfig creates a client TLS config with TLS 1.2 as the floor.
// It returns nil when no options are set, leaving the exporter defaults.
func BuildTLSConfig(opts TLSOptions) (*tls.Config, error) {
	if opts.Empty() {
		return nil, nil
	}

	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         opts.ServerName,
		InsecureSkipVerify: opts.SkipVerify, //nolint:gosec // opt-in for local collectors
	}

	if opts.CACertPath != "" {
		pem, err := os.ReadFile(opts.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to parse CA certificate %s", opts.CACertPath)
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

// ValidateTLSConfig rejects configs below TLS 1.2.
func ValidateTLSConfig(cfg *tls.Config) error {
	if cfg == nil {
		return fmt.Errorf("TLS config is nil")
	}
	if cfg.MinVersion < tls.VersionTLS12 {
		return fmt.Errorf("minimum TLS version must be 1.2 or higher, got %d", cfg.MinVersion)
	}
	return nil
}
