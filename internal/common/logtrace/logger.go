// Package logtrace provides logging and tracing utilities for the connector.
// It integrates with zerolog for structured logging and supports request tracing.
package logtrace

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the global logger with Unix millisecond timestamps on stderr.
func InitLogger() {
	InitLoggerWithWriter(os.Stderr)
}

// InitLoggerWithWriter initializes the global logger to write to w.
// The CLI uses it to route its diagnostics away from the streamed import log.
func InitLoggerWithWriter(w io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// SetLevel sets the global log level from its textual form. Unknown levels keep info.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
