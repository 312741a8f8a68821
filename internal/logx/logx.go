// Package logx provides the logging functions used throughout the core.
//
// The API is a thin level-gated surface (level consts, SetMinLevel,
// Debugf/Infof/Warnf/Errorf) backed by zerolog so call
// sites can attach structured fields with With() instead of formatting them
// into the message string.
package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Level is the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ParseLevel parses a level name as accepted by GITMC_LOG_LEVEL. Unknown
// values fall back to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

var base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()

// SetMinLevel sets the minimum level to include in the logging output.
func SetMinLevel(level Level) {
	base = base.Level(level.zerolog())
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	base = base.Output(zerolog.ConsoleWriter{Out: w, NoColor: true})
}

// Logger is a narrow facade over a zerolog.Logger carrying a fixed set of
// structured fields (save path, operation kind, ...).
type Logger struct {
	z zerolog.Logger
}

// Default returns the package-level logger with no extra fields bound.
func Default() Logger {
	return Logger{z: base}
}

// With returns a child logger with an additional structured field bound.
func (l Logger) With(key string, value interface{}) Logger {
	return Logger{z: l.z.With().Interface(key, value).Logger()}
}

func (l Logger) Debugf(msg string, args ...interface{}) { l.z.Debug().Msgf(msg, args...) }
func (l Logger) Debug(msg string)                       { l.z.Debug().Msg(msg) }
func (l Logger) Infof(msg string, args ...interface{})  { l.z.Info().Msgf(msg, args...) }
func (l Logger) Info(msg string)                        { l.z.Info().Msg(msg) }
func (l Logger) Warnf(msg string, args ...interface{})  { l.z.Warn().Msgf(msg, args...) }
func (l Logger) Warn(msg string)                        { l.z.Warn().Msg(msg) }
func (l Logger) Errorf(msg string, args ...interface{}) { l.z.Error().Msgf(msg, args...) }
func (l Logger) Error(msg string)                       { l.z.Error().Msg(msg) }

// Package-level convenience functions over the default logger.

func Debugf(msg string, args ...interface{}) { Default().Debugf(msg, args...) }
func Debug(msg string)                       { Default().Debug(msg) }
func Infof(msg string, args ...interface{})  { Default().Infof(msg, args...) }
func Info(msg string)                        { Default().Info(msg) }
func Warnf(msg string, args ...interface{})  { Default().Warnf(msg, args...) }
func Warn(msg string)                        { Default().Warn(msg) }
func Errorf(msg string, args ...interface{}) { Default().Errorf(msg, args...) }
func Error(msg string)                       { Default().Error(msg) }
