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

// Package apiclient calls the Delineate download backend.
//
// Every call goes through an Executor, which wraps the HTTP exchange in a
// client span, propagates the W3C trace context, attaches the response
// status, latency and backend request ID to the span, and reports the outcome
// exactly once to a metrics.Reporter. Failures are returned as *APIError
// (non-2xx), *TransportError (no response) or *DecodeError (unreadable 2xx
// body), each carrying the trace ID of the call, and are forwarded to the
// configured error reporter.
//
// The parent span is taken from the context passed in. Callers that want a
// call nested under a larger operation start that operation's span first and
// pass its context.
package apiclient
