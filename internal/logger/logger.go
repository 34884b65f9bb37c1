package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/tickwatch/tickwatch/internal/config"
)

// New builds the process logger. The TUI owns the terminal, so output goes
// to the configured log file; with no file configured, logs are discarded.
func New(cfg config.Config) zerolog.Logger {
	var out io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			out = f
		}
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.AppEnv == "dev" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
