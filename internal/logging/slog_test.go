package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufLogger(buf *bytes.Buffer) *SlogLogger {
	h := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h))
}

func TestSlogLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := newBufLogger(&buf)
	ctx := context.Background()

	log.Debug(ctx, "debug msg", "k", "v")
	log.Info(ctx, "info msg")
	log.Warn(ctx, "warn msg")
	log.Error(ctx, "error msg")

	out := buf.String()
	assert.Contains(t, out, "debug msg")
	assert.Contains(t, out, "info msg")
	assert.Contains(t, out, "warn msg")
	assert.Contains(t, out, "error msg")
	assert.Contains(t, out, "k=v")
}

func TestSlogLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := newBufLogger(&buf)

	child := log.With("component", "sync")
	child.Info(context.Background(), "hello")

	assert.Contains(t, buf.String(), "component=sync")
}

func TestNewNop_DiscardsEverything(t *testing.T) {
	log := NewNop()
	log.Info(context.Background(), "goes nowhere")
}
