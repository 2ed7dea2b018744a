package utils

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFanoutHandler(t *testing.T) {
	var info, debug bytes.Buffer
	logger := slog.New(NewFanoutHandler(
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))

	logger.Debug("only debug")
	logger.With("ticket", "T1").WithGroup("user").Info("both", "name", "b")

	assert.NotContains(t, info.String(), "only debug")
	assert.Contains(t, info.String(), "ticket=T1")
	assert.Contains(t, info.String(), "user.name=b")

	assert.Contains(t, debug.String(), "only debug")
	assert.Contains(t, debug.String(), `"user":{"name":"b"}`)
}

func TestFanoutHandler_Enabled(t *testing.T) {
	h := NewFanoutHandler(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}))
	assert.False(t, h.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, h.Enabled(t.Context(), slog.LevelError))
}
