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

import (
	"errors"
	"fmt"
	"io"
	"os"

	monitorerrors "github.com/tombee/delineate-monitor/pkg/errors"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitExecutionFailed = 1
	ExitInvalidInput    = 2
	ExitAPIError        = 4
	ExitTransportError  = 5
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates an error for local failures such as setup
func NewExecutionError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitExecutionFailed, Message: msg, Cause: cause}
}

// NewInvalidInputError creates an error for bad arguments, flags or config
func NewInvalidInputError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitInvalidInput, Message: msg, Cause: cause}
}

// NewCallError wraps a failed backend call, picking the exit code from the
// error's classification: backend rejections and unreadable responses exit
// with ExitAPIError, unreachable backends with ExitTransportError.
func NewCallError(msg string, cause error) *ExitError {
	code := ExitExecutionFailed
	switch monitorerrors.Classify(cause) {
	case "api", "decode":
		code = ExitAPIError
	case "transport":
		code = ExitTransportError
	case "validation", "config":
		code = ExitInvalidInput
	}
	return &ExitError{Code: code, Message: msg, Cause: cause}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var cfgErr *monitorerrors.ConfigError
	var valErr *monitorerrors.ValidationError
	if errors.As(err, &cfgErr) || errors.As(err, &valErr) {
		return ExitInvalidInput
	}
	return ExitExecutionFailed
}

// PrintError writes err and any suggestion it carries to w.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(w, RenderError("Error: "+msg))
	}
	if uv := monitorerrors.UserVisible(err); uv != nil {
		if suggestion := uv.Suggestion(); suggestion != "" {
			fmt.Fprintf(w, "\n%s %s\n", Muted.Render("Suggestion:"), suggestion)
		}
	}
}

// HandleExitError reports err and exits with the matching code. With --json
// the error is emitted as a JSON envelope on stdout instead.
func HandleExitError(command string, err error) {
	if err == nil {
		return
	}
	if GetJSON() {
		_ = EmitJSONError(os.Stdout, command, []JSONError{NewJSONError(err)})
	} else {
		PrintError(os.Stderr, err)
	}
	os.Exit(ExitCode(err))
}
