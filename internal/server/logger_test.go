// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newLogHandler(&buf, "info", "json"))

	logger.Info("verification_started", "email", "user@example.com")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "verification_started", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "user@example.com", entry["email"])
}

func TestNewLogHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newLogHandler(&buf, "debug", "text"))

	logger.Debug("assets loaded", "css", "/static/css/styles.css")

	assert.Contains(t, buf.String(), "assets loaded")
	assert.Contains(t, buf.String(), "css=/static/css/styles.css")
}

func TestNewLogHandler_Levels(t *testing.T) {
	tests := []struct {
		level   string
		enabled slog.Level
		blocked slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"bogus", slog.LevelInfo, slog.LevelDebug},
	}

	for _, tt := range tests {
		h := newLogHandler(&bytes.Buffer{}, tt.level, "json")

		assert.True(t, h.Enabled(context.Background(), tt.enabled), tt.level)
		assert.False(t, h.Enabled(context.Background(), tt.blocked), tt.level)
	}
}
