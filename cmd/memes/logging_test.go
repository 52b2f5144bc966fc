package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/memes/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestNewLogHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newLogHandler(&buf, config.LogConfig{Level: "info", Format: "json"}))

	logger.Debug("hidden")
	logger.Info("meme created", "id", 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "meme created", entry["msg"])
	assert.Contains(t, entry, "ts")
	assert.NotContains(t, entry, "time")
}

func TestNewLogHandler_Levels(t *testing.T) {
	for _, format := range []string{"text", "json", "charm"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			h := newLogHandler(&buf, config.LogConfig{Level: "warn", Format: format})

			logger := slog.New(h)
			logger.Info("quiet")
			assert.Empty(t, buf.String())

			logger.Warn("loud")
			assert.Contains(t, buf.String(), "loud")
		})
	}
}
