package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info", "json")

	logger.With("component", "pipeline").Info("batch loaded",
		"count", 3,
		"ratio", 0.5,
		"elapsed", 2*time.Second,
		"error", errors.New("boom"),
	)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "batch loaded", line["message"])
	assert.Equal(t, "coverage-etl", line["service"])
	assert.Equal(t, "pipeline", line["component"])
	assert.Equal(t, float64(3), line["count"])
	assert.Equal(t, 0.5, line["ratio"])
	assert.Equal(t, "boom", line["error"])
	assert.Contains(t, line, "time")
}

func TestNewLoggerTo_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn", "json")

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestNewLoggerTo_Group(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "debug", "json")

	logger.WithGroup("wcs").Debug("request", "op", "describe")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "describe", line["wcs.op"])
}

func TestNewLoggerTo_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info", "console")
	logger.Info("hello", "k", "v")

	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "k=")
	assert.NotContains(t, buf.String(), `"message"`)
}
