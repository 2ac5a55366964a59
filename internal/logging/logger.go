package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/civicwatch/internal/config"
)

// NewLogger creates a structured zerolog.Logger tagged with the service name
// and store driver from the config.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return NewLoggerTo(os.Stdout, cfg)
}

// NewLoggerTo is NewLogger writing to w. CLI commands log to stderr so
// stdout stays clean for their output.
func NewLoggerTo(w io.Writer, cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.StoreDriver != "" {
		ctx = ctx.Str("store", cfg.StoreDriver)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
