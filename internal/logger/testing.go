package logger

import (
	"io"
	"log/slog"
	"os"
)

// NewTestLogger returns the logger test fixtures share. Output is discarded
// so test runs stay quiet; set TEST_DEBUG to see debug-level output while
// chasing a failure.
func NewTestLogger() *slog.Logger {
	if os.Getenv("TEST_DEBUG") != "" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
