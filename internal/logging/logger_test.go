package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darling/internal/config"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLevel(tt.input), tt.input)
	}
}

func TestNewWritesJSONForNonTerminal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(config.LogConfig{Level: "info", Format: "auto"}, &buf)
	log.Debug().Msg("hidden")
	log.Info().Str("task", "buy milk").Msg("task added")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "task added", entry["message"])
	assert.Equal(t, "buy milk", entry["task"])
	assert.Equal(t, "darling", entry["app"])
}

func TestNewConsoleFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(config.LogConfig{Level: "debug", Format: "console"}, &buf)
	log.Debug().Msg("listening")

	out := buf.String()
	assert.Contains(t, out, "listening")
	assert.False(t, json.Valid([]byte(strings.TrimSpace(out))))
}
