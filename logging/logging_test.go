package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progrium/multiplex-go/config"
)

func TestLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test", config.LogConfig{Level: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestUnknownLevelIsInfo(t *testing.T) {
	logger := New("test", config.LogConfig{Level: "chatty"}, &bytes.Buffer{})
	assert.True(t, logger.IsInfo())
	assert.False(t, logger.IsDebug())
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	New("test", config.LogConfig{Level: "info", JSON: true}, &buf).Info("hello", "channel", "ann")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["@message"])
	assert.Equal(t, "ann", line["channel"])
	assert.Equal(t, "test", line["@module"])
}
