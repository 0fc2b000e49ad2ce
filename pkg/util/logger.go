package util

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger: human-readable text with debug
// detail in development, JSON elsewhere. Every line carries the
// service tag so aggregated logs stay attributable.
func NewLogger(env string) *slog.Logger {
	var handler slog.Handler
	switch env {
	case "development":
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.New(handler).With("service", "gatehouse")
}
