package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestNew_BuildsUsableLogger(t *testing.T) {
	logger := New(Config{Level: "debug", Format: "json"})
	assert.NotNil(t, logger)
	logger.Info("hello", "key", "value")
}

func TestNew_TextFormat(t *testing.T) {
	logger := New(Config{Level: "info", Format: "text"})
	assert.NotNil(t, logger)
}
