// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
)

type Config struct {
	Level  string
	Pretty bool
}

// Setup installs the global logger. Unknown levels fall back to info.
func Setup(c Config) {
	SetupWriter(c, os.Stdout)
}

func SetupWriter(c Config, w io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(strings.ToLower(c.Level))
	if err != nil || c.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zerologlog.Logger = zerolog.New(w).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &zerologlog.Logger
}
