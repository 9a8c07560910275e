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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTLSConfig_EmptyReturnsNil(t *testing.T) {
	cfg, err := BuildTLSConfig(TLSOptions{})
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestBuildTLSConfig_SkipVerify(t *testing.T) {
	cfg, err := BuildTLSConfig(TLSOptions{SkipVerify: true, ServerName: "collector.local"})
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.True(t, cfg.InsecureSkipVerify)
	assert.Equal(t, "collector.local", cfg.ServerName)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
}

func TestBuildTLSConfig_MissingCA(t *testing.T) {
	_, err := BuildTLSConfig(TLSOptions{CACertPath: filepath.Join(t.TempDir(), "missing.pem")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read CA certificate")
}

func TestBuildTLSConfig_InvalidCA(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))

	_, err := BuildTLSConfig(TLSOptions{CACertPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse CA certificate")
}

func TestValidateTLSConfig(t *testing.T) {
	assert.NoError(t, ValidateTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}))
	assert.ErrorContains(t, ValidateTLSConfig(nil), "nil")
	assert.ErrorContains(t, ValidateTLSConfig(&tls.Config{MinVersion: tls.VersionTLS10}), "minimum TLS version")
}
