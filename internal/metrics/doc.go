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

// Package metrics tracks the outcome of backend API calls.
//
// The Aggregator keeps cumulative success and failure counts together with a
// bounded window of recent latencies, from which it derives a rolling
// average. It is safe for concurrent use: every call reported by the
// executor lands in exactly one Report, and readers always observe a
// consistent Snapshot.
//
// The Collector exposes the same calls as OpenTelemetry instruments so they
// can be scraped through the Prometheus endpoint.
package metrics
