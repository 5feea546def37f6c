package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger scoped to the given service name.
func New(service string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(h).With("service", service)
}
