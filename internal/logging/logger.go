// Package logging provides structured, leveled logging for the media
// cryptography and transport packages via a zerolog console-writer.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with the console-writer setup this module uses
// everywhere it logs pipeline or dispatch activity.
type Logger struct {
	zlog   zerolog.Logger
	output io.Writer
}

// New creates a Logger writing to w with a human-readable console format.
// Pass os.Stderr for CLI use; pass any io.Writer (a buffer, a file) for
// tests or embedding.
func New(w io.Writer) *Logger {
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return &Logger{
		zlog:   zerolog.New(console).With().Timestamp().Logger(),
		output: w,
	}
}

// NewDefault creates a Logger writing to stderr.
func NewDefault() *Logger {
	return New(os.Stderr)
}

// Info returns an info-level event.
func (l *Logger) Info() *zerolog.Event { return l.zlog.Info() }

// Error returns an error-level event.
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

// Debug returns a debug-level event.
func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }

// Warn returns a warn-level event.
func (l *Logger) Warn() *zerolog.Event { return l.zlog.Warn() }

// With starts a child-logger context, used to attach fields (media type,
// host, direct path) common to every log line in one pipeline run.
func (l *Logger) With() zerolog.Context { return l.zlog.With() }

// Stage returns a child Logger tagged with a "stage" field, one per named
// pipeline component (kdf, encrypt, decrypt, upload, retry).
func (l *Logger) Stage(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("stage", name).Logger(), output: l.output}
}

// SetGlobalLevel sets the process-wide minimum log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}
