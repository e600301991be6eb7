package logging

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var current atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	current.Store(&l)
}

func setLogger(l zerolog.Logger) {
	current.Store(&l)
}

// Replace swaps the process logger and returns the previous one.
func Replace(l zerolog.Logger) zerolog.Logger {
	return *current.Swap(&l)
}

// Logger returns the configured process logger.
func Logger() zerolog.Logger {
	return *current.Load()
}

// With returns the process logger tagged with a component name.
func With(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}

func Tracef(format string, args ...any) { l := Logger(); l.Trace().Msgf(format, args...) }
func Debugf(format string, args ...any) { l := Logger(); l.Debug().Msgf(format, args...) }
func Infof(format string, args ...any) { l := Logger(); l.Info().Msgf(format, args...) }
func Warnf(format string, args ...any) { l := Logger(); l.Warn().Msgf(format, args...) }
func Errorf(format string, args ...any) { l := Logger(); l.Error().Msgf(format, args...) }

// Logf writes an unlevelled line, used by tests for narration.
func Logf(format string, args ...any) { l := Logger(); l.Log().Msgf(format, args...) }
