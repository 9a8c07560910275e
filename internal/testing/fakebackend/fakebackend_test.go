package fakebackend

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_CheckAndFailures(t *testing.T) {
	b := New(t)

	resp, err := http.Post(b.URL+"/v1/download/check", "application/json", strings.NewReader(`{"file_id":70000}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-1", resp.Header.Get(RequestIDHeader))

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "completed", got["status"])

	b.FailNext(http.StatusBadGateway, "upstream", "boom")
	resp2, err := http.Get(b.URL + "/health")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp2.StatusCode)

	rec := b.Received()
	require.Len(t, rec, 2)
	assert.Equal(t, int64(70000), rec[0].FileID)
	assert.Equal(t, "/health", rec[1].Path)
}

func TestBackend_Unhealthy(t *testing.T) {
	b := New(t)
	b.SetHealth("unhealthy", "down")

	resp, err := http.Get(b.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
