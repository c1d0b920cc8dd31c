package logger

import (
	"io"
	"log/slog"
	"os"
)

// New — JSON-логгер; в dev пишет и debug. w == nil — stdout.
func New(env string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("app", "parkaro", "env", env)
}

// Nop отбрасывает всё.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
