package logger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medwise-api/internal/logger"
)

func TestJSONLevels(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewSlog(logger.SlogConfig{Level: "warn", Output: &buf})

	log.Info("hidden")
	log.Warn("shown", "user_id", "u1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "u1", rec["user_id"])
	assert.NotEmpty(t, rec["time"])
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewSlog(logger.SlogConfig{Level: "DEBUG", Format: "text", Output: &buf})
	log.Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
