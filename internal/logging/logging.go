// Package logging builds the process slog handler on top of zerolog.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"

	"chatbridge/internal/config"
)

// New returns a logger writing to w. Unknown levels fall back to info.
func New(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	if cfg.Format != config.FormatJSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Stamp}
	}
	log := zerolog.New(w).With().Timestamp().Logger()

	return slog.New(zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: Level(cfg.Level)}))
}

// Level parses a level name such as "debug" or "warn".
func Level(name string) slog.Level {
	var lvl slog.Level
	if strings.EqualFold(name, "warning") {
		name = "warn"
	}
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
