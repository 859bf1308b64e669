// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

// Setup installs the global logger according to cfg. An unknown level falls
// back to info; the "text" format produces console output for development.
func Setup(cfg Config) {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "text" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	log.Logger = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}
