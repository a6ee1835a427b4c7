package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mediavault/internal/config"
)

// New constructs the service logger from the configured level and format.
// Unknown levels fall back to info; any format other than "console" is JSON.
func New(cfg *config.Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var base zerolog.Logger
	switch strings.ToLower(cfg.LogFormat) {
	case "console":
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	default:
		base = zerolog.New(os.Stdout)
	}

	zerolog.SetGlobalLevel(lvl)
	return base.Level(lvl).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Logger()
}
