// Package logtrace provides logging and tracing utilities for the application.
// It integrates with zerolog for structured logging, mirrors every line to the
// console and to an append-only log file that rolls over once per day.
package logtrace

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultLogPrefix is the file name prefix of the daily log files.
const DefaultLogPrefix = "brrbot"

// InitLogger initializes the global logger with a console writer on stderr.
// Used before configuration is available and by commands that do not persist logs.
func InitLogger() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger
}

// InitFileLogger configures the global logger to write to the console and to a
// daily file under dir. The returned closer releases the open log file.
func InitFileLogger(level string, dir string) (io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	fileWriter, err := NewDailyFileWriter(dir, DefaultLogPrefix)
	if err != nil {
		return nil, err
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(lvl)

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, fileWriter)).
		With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger

	return fileWriter, nil
}

// ParseLevel maps a configured verbosity to a zerolog level. An empty string
// selects info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "trace":
		return zerolog.TraceLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}
