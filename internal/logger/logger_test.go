// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logger

import (
	"bytes"
	"testing"

	"github.com/relabs-tech/imu_logger/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestComponentTagsEvents(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, false, true, true)
	defer SetLogLevel(WarnLevel)

	For("storage").Info().Str("volume", "0:").Msg("mounted")

	out := buf.String()
	assert.Contains(t, out, "mounted")
	assert.Contains(t, out, "component=storage")
	assert.Contains(t, out, "volume=0:")
}

func TestErrAddsCode(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, false, false, true)

	err := errors.New().New(errors.ErrMediaAbsent)
	For("loop").Err(err).Msg("mount failed")

	assert.Contains(t, buf.String(), "error_code=media_absent")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, false, false, true)

	Info().Msg("hidden")
	Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
