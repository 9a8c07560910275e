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

package errors_test

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	monitorerrors "github.com/tombee/delineate-monitor/pkg/errors"
)

func TestValidationError(t *testing.T) {
	err := &monitorerrors.ValidationError{Field: "file-id", Message: "must be a positive integer", Hint: "Use e.g. 70000"}

	assert.Equal(t, "invalid file-id: must be a positive integer", err.Error())
	assert.Equal(t, "invalid input: bad", (&monitorerrors.ValidationError{Message: "bad"}).Error())
	assert.Equal(t, "Use e.g. 70000", err.Suggestion())
	assert.Equal(t, "validation", monitorerrors.Classify(err))
}

func TestConfigError(t *testing.T) {
	cause := fs.ErrNotExist
	err := &monitorerrors.ConfigError{Key: "backend.base_url", Reason: "must be an absolute URL", Cause: cause}

	assert.Equal(t, "config error at backend.base_url: must be an absolute URL: file does not exist", err.Error())
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Suggestion(), "backend.base_url")
	assert.Empty(t, (&monitorerrors.ConfigError{Reason: "x"}).Suggestion())
}

func TestWrap(t *testing.T) {
	assert.NoError(t, monitorerrors.Wrap(nil, "ctx"))
	assert.NoError(t, monitorerrors.Wrapf(nil, "ctx %d", 1))

	base := &monitorerrors.ConfigError{Reason: "boom"}
	wrapped := monitorerrors.Wrapf(base, "loading %s", "monitor.yaml")
	assert.Equal(t, "loading monitor.yaml: config error: boom", wrapped.Error())

	var target *monitorerrors.ConfigError
	require.True(t, monitorerrors.As(wrapped, &target))
	assert.Same(t, base, target)
}

func TestClassifyAndUserVisible(t *testing.T) {
	plain := errors.New("plain")
	assert.Empty(t, monitorerrors.Classify(plain))
	assert.Nil(t, monitorerrors.UserVisible(plain))

	wrapped := monitorerrors.Wrap(&monitorerrors.ValidationError{Message: "bad"}, "parsing args")
	assert.Equal(t, "validation", monitorerrors.Classify(wrapped))
	uv := monitorerrors.UserVisible(wrapped)
	require.NotNil(t, uv)
	assert.Equal(t, "invalid input: bad", uv.UserMessage())
}
