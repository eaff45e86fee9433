package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "production", "info")
	log.Info("attempt submitted", "attempt_id", "a-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "attempt submitted", line["msg"])
	assert.Equal(t, "veritas", line["service"])
	assert.Equal(t, "a-1", line["attempt_id"])
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "dev", "warn")
	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
