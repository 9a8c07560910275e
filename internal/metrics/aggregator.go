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

package metrics

import (
	"sync"
	"time"
)

// DefaultWindowSize is the number of recent latencies kept for the rolling average.
const DefaultWindowSize = 100

// Reporter receives exactly one outcome per completed API call.
type Reporter interface {
	Report(success bool, latency time.Duration)
}

// Snapshot is a consistent view of the aggregator at one instant.
type Snapshot struct {
	Total            int64         `json:"total_requests"`
	Success          int64         `json:"success_count"`
	Failure          int64         `json:"failure_count"`
	AverageLatency   time.Duration `json:"-"`
	AverageLatencyMs float64       `json:"average_latency_ms"`
	SuccessRate      float64       `json:"success_rate"`
	WindowSize       int           `json:"window_size"`
	WindowLen        int           `json:"window_len"`
}

// Aggregator counts call outcomes and keeps a bounded FIFO window of
// latencies. The counts are cumulative; only the latency window is bounded.
type Aggregator struct {
	mu sync.Mutex

	success int64
	failure int64

	// ring buffer of the most recent latencies
	window []time.Duration
	head   int // index of the oldest sample
	count  int
	sum    time.Duration
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithWindowSize sets the number of latencies retained. Values <= 0 select
// DefaultWindowSize.
func WithWindowSize(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.window = make([]time.Duration, n)
		}
	}
}

// NewAggregator creates an empty aggregator.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{}
	for _, opt := range opts {
		opt(a)
	}
	if a.window == nil {
		a.window = make([]time.Duration, DefaultWindowSize)
	}
	return a
}

// Report records one completed call. Negative latencies are clamped to zero.
func (a *Aggregator) Report(success bool, latency time.Duration) {
	if latency < 0 {
		latency = 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if success {
		a.success++
	} else {
		a.failure++
	}

	capacity := len(a.window)
	if a.count < capacity {
		a.window[(a.head+a.count)%capacity] = latency
		a.count++
	} else {
		a.sum -= a.window[a.head]
		a.window[a.head] = latency
		a.head = (a.head + 1) % capacity
	}
	a.sum += latency
}

// Snapshot returns the current counts and rolling average.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		Success:    a.success,
		Failure:    a.failure,
		Total:      a.success + a.failure,
		WindowSize: len(a.window),
		WindowLen:  a.count,
	}
	if a.count > 0 {
		s.AverageLatency = a.sum / time.Duration(a.count)
		s.AverageLatencyMs = float64(a.sum) / float64(a.count) / float64(time.Millisecond)
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Success) / float64(s.Total) * 100
	}
	return s
}

// Window returns a copy of the retained latencies, oldest first.
func (a *Aggregator) Window() []time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]time.Duration, a.count)
	for i := 0; i < a.count; i++ {
		out[i] = a.window[(a.head+i)%len(a.window)]
	}
	return out
}

// Reset clears counts and the latency window.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.success, a.failure = 0, 0
	a.head, a.count, a.sum = 0, 0, 0
	clear(a.window)
}
