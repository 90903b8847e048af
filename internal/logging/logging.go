// Package logging provides the process-wide structured logger every
// other package pulls a child logger from, instead of reaching for the
// standard library's log.Printf.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance, ready to use even before Init
// is called (until then it writes timestamped JSON to stdout, filtered
// only by zerolog's default global level).
var Logger zerolog.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init (re)configures the global Logger.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger tagged with the originating
// package, e.g. "distributor", "gossip", "api".
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithNode creates a child logger tagged with this process's own
// address, for distinguishing log lines across nodes aggregated into
// one place.
func WithNode(addr string) zerolog.Logger {
	return Logger.With().Str("node", addr).Logger()
}

// WithBucket creates a child logger tagged with a bucket index, for
// gossip and view-change log lines.
func WithBucket(bucketIndex int) zerolog.Logger {
	return Logger.With().Int("bucket", bucketIndex).Logger()
}
