package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := SetupWithWriter("debug", "json", &buf)
	require.NoError(t, err)

	logger.Debug().Str("playlist", "focus").Msg("evaluated")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "focus", line["playlist"])
	assert.Equal(t, "evaluated", line["message"])
}

func TestSetupWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := SetupWithWriter("warn", "text", &buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	assert.False(t, strings.Contains(out, "hidden"))
	assert.True(t, strings.Contains(out, "shown"))
}

func TestSetupWithWriter_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
	}{
		{"bad level", "loud", "json"},
		{"bad format", "info", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SetupWithWriter(tt.level, tt.format, &bytes.Buffer{}); err == nil {
				t.Fatalf("SetupWithWriter() error = nil, want error")
			}
		})
	}
}
