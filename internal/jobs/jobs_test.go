package jobs

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/delineate-monitor/internal/apiclient"
)

func fixedNow(t *testing.T) time.Time {
	t.Helper()
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	prev := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = prev })
	return ts
}

func TestFromCheck(t *testing.T) {
	ts := fixedNow(t)

	job := FromCheck(apiclient.DownloadCheckResponse{FileID: 9, Status: "completed", Message: "ready"},
		apiclient.Meta{TraceID: "trace-1", RequestID: "req-1"})

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, KindCheck, job.Kind)
	assert.Equal(t, int64(9), job.FileID)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, "ready", job.Message)
	assert.Equal(t, "trace-1", job.TraceID)
	assert.Equal(t, "req-1", job.RequestID)
	assert.Equal(t, ts, job.Timestamp)
}

func TestFromStart_UsesBackendJobID(t *testing.T) {
	job := FromStart(apiclient.DownloadStartResponse{JobID: "job-42", FileID: 3, Status: "pending"}, apiclient.Meta{})
	assert.Equal(t, "job-42", job.ID)
	assert.Equal(t, StatusPending, job.Status)

	job = FromStart(apiclient.DownloadStartResponse{FileID: 3, Status: "weird"}, apiclient.Meta{})
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusPending, job.Status)
}

func TestFromError(t *testing.T) {
	apiErr := &apiclient.APIError{
		StatusCode: 500,
		Body:       apiclient.ErrorBody{Error: "x", Message: "y"},
		TraceID:    "trace-err",
		RequestID:  "req-err",
	}

	job := FromError(KindCheck, 11, fmt.Errorf("checking: %w", apiErr), apiclient.Meta{TraceID: "trace-meta"})
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, "checking: y", job.Message)
	assert.Equal(t, "trace-err", job.TraceID)
	assert.Equal(t, "req-err", job.RequestID)

	job = FromError(KindStart, 11, errors.New("plain"), apiclient.Meta{TraceID: "trace-meta"})
	assert.Equal(t, "trace-meta", job.TraceID)
	assert.Equal(t, KindStart, job.Kind)
}

func TestStore_NewestFirstAndBounded(t *testing.T) {
	s := NewStore(3)
	for i := 1; i <= 5; i++ {
		s.Add(Job{ID: fmt.Sprint(i)})
	}

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"5", "4", "3"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, 3, s.Len())

	list[0].ID = "mutated"
	assert.Equal(t, "5", s.List()[0].ID, "List returns a copy")
}

func TestStore_DefaultLimit(t *testing.T) {
	s := NewStore(0)
	for i := 0; i < DefaultLimit+10; i++ {
		s.Add(Job{})
	}
	assert.Equal(t, DefaultLimit, s.Len())
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore(1000)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				s.Add(Job{})
				_ = s.List()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 500, s.Len())
}

func TestWithViewer(t *testing.T) {
	job := Job{TraceID: "abc"}.WithViewer("http://jaeger:16686/")
	assert.Equal(t, "http://jaeger:16686/trace/abc", job.TraceURL)

	assert.Empty(t, Job{}.WithViewer("http://jaeger:16686").TraceURL)
	assert.Empty(t, Job{TraceID: "abc"}.WithViewer("").TraceURL)
}
