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

package shared

// Error codes for structured JSON output
const (
	// Input errors (E001-E099)
	ErrorCodeInvalidInput  = "E001" // Invalid argument or flag
	ErrorCodeInvalidConfig = "E002" // Invalid configuration

	// Backend errors (E100-E199)
	ErrorCodeAPIError       = "E101" // Backend returned a non-2xx status
	ErrorCodeDecodeError    = "E102" // Backend response could not be decoded
	ErrorCodeTransportError = "E103" // Backend unreachable or timed out

	// Local errors (E400-E499)
	ErrorCodeInternal = "E402" // Internal error
)

// errorCodeFor maps an error's classification to a JSON error code
func errorCodeFor(class string) string {
	switch class {
	case "validation":
		return ErrorCodeInvalidInput
	case "config":
		return ErrorCodeInvalidConfig
	case "api":
		return ErrorCodeAPIError
	case "decode":
		return ErrorCodeDecodeError
	case "transport":
		return ErrorCodeTransportError
	default:
		return ErrorCodeInternal
	}
}
