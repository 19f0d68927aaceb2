// Package logging builds zerolog loggers for the binaries.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New creates a logger writing to w.
//
// format: "console" (human-readable) or "json" (structured)
func New(level, format string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if strings.ToLower(format) != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Setup installs the logger as the zerolog global so packages that default to
// log.Logger pick it up.
func Setup(level, format string) zerolog.Logger {
	logger := New(level, format, os.Stderr)
	log.Logger = logger
	return logger
}

// ParseLevel returns zerolog.InfoLevel for unrecognized values.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
