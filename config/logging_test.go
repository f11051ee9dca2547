package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := LogConfig{Level: "warn", Format: "json"}.NewLogger("livebridge-sim", &buf)
	require.NoError(t, err)
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("shown", "subject", "Forklift_01")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "livebridge-sim", line["service"])
	assert.Equal(t, "Forklift_01", line["subject"])
}

func TestLogConfig_TextAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.log")

	logger, closeFn, err := LogConfig{Level: "info", Format: "text", File: path}.NewLogger("livebridge-native", nil)
	require.NoError(t, err)
	logger.Info("bridge up")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=\"bridge up\"")
	assert.Contains(t, string(data), "service=livebridge-native")
}

func TestLogConfig_Errors(t *testing.T) {
	_, _, err := LogConfig{Level: "loud"}.NewLogger("x", &bytes.Buffer{})
	assert.Error(t, err)

	_, _, err = LogConfig{File: filepath.Join(t.TempDir(), "missing", "bridge.log")}.NewLogger("x", &bytes.Buffer{})
	assert.Error(t, err)
}
