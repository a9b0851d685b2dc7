package actorwire

import (
	"log/slog"
	"os"
)

// InitLogger configures the global slog logger to emit structured JSON to
// stderr. Call this once at process startup, before constructing any
// Channel.
func InitLogger(level slog.Level) {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
