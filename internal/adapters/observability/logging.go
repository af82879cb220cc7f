package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger writing to stdout.
// APP_ENV=dev (or development) uses a human-friendly console writer.
func NewLogger(env, level string) zerolog.Logger {
	return NewLoggerTo(os.Stdout, env, level)
}

// NewLoggerTo is NewLogger with an explicit sink.
func NewLoggerTo(w io.Writer, env, level string) zerolog.Logger {
	if env == "dev" || env == "development" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
