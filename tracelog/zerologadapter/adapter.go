// Package zerologadapter provides a tracelog.Logger that writes to a
// github.com/rs/zerolog logger.
package zerologadapter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/riverstone/pgwire/tracelog"
)

// Logger adapts a zerolog.Logger to tracelog.Logger.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger wraps logger, tagging every record with module=pgwire.
func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger.With().Str("module", "pgwire").Logger()}
}

func (l *Logger) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	var zlevel zerolog.Level
	switch level {
	case tracelog.LogLevelNone:
		zlevel = zerolog.NoLevel
	case tracelog.LogLevelError:
		zlevel = zerolog.ErrorLevel
	case tracelog.LogLevelWarn:
		zlevel = zerolog.WarnLevel
	case tracelog.LogLevelInfo:
		zlevel = zerolog.InfoLevel
	case tracelog.LogLevelDebug:
		zlevel = zerolog.DebugLevel
	default:
		zlevel = zerolog.DebugLevel
	}

	entry := l.logger.With().Fields(data).Logger()
	entry.WithLevel(zlevel).Msg(msg)
}
