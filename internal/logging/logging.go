// Package logging configures the process-wide zerolog logger.
//
// Logs always go to stderr: the MCP server speaks JSON-RPC on stdout and the
// CLI prints its results there.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvLevel names the environment variable holding the log level.
const EnvLevel = "CONTOUR_LOG_LEVEL"

// EnvFormat names the environment variable selecting "json" output instead
// of the human-readable console format.
const EnvFormat = "CONTOUR_LOG_FORMAT"

// ParseLevel maps a level name to a zerolog level. Unknown or empty names
// fall back to info.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// New builds a logger writing to w. JSON output is used when json is true,
// otherwise a console writer without colors.
func New(w io.Writer, level zerolog.Level, json bool) zerolog.Logger {
	if !json {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Setup installs the global logger from the environment and tags every event
// with the component name.
func Setup(component string) zerolog.Logger {
	level := ParseLevel(os.Getenv(EnvLevel))
	json := strings.EqualFold(os.Getenv(EnvFormat), "json")

	logger := New(os.Stderr, level, json).With().Str("component", component).Logger()
	zerolog.SetGlobalLevel(level)
	log.Logger = logger
	return logger
}
