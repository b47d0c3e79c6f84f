// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerInitialized(t *testing.T) {
	require.NotNil(t, Logger, "package init should install a logger")
}

func TestSetLevelFiltersRecords(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, false)
	defer SetOutput(nil, false)

	SetLevel(slog.LevelWarn)
	Logger.Info("should be filtered")
	Logger.Warn("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should be filtered")
	assert.Contains(t, out, "should appear")

	SetLevel(slog.LevelInfo)
}

func TestSetLevelFromString(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, false)
	defer SetOutput(nil, false)

	SetLevelFromString("error")
	Logger.Warn("warn line")
	SetLevelFromString("debug")
	Logger.Debug("debug line")

	out := buf.String()
	assert.NotContains(t, out, "warn line")
	assert.Contains(t, out, "debug line")

	SetLevelFromString("info")
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, true)
	defer SetOutput(nil, false)

	Logger.Info("json record", "func_index", 3)
	assert.Contains(t, buf.String(), `"func_index":3`)
}
