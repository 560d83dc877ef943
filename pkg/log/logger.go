// Package log provides structured logging for causalgo estimators.
//
// It wraps log/slog with a handler that extracts cockroachdb/errors stack
// traces into a dedicated attribute, defines standard attribute keys for
// estimator operations, and bridges library warnings into zerolog so that
// ill-conditioned fits and non-converged searches show up as structured
// events rather than free-form text.
package log

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/causalgo/pkg/errors"
)

// SetupLogger installs the default slog JSON logger at the given level and
// routes library warnings into zerolog.
func SetupLogger(loglevel string) {
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     ToLogLevel(loglevel),
	}
	handler := slog.NewJSONHandler(os.Stdout, &ops)
	errFmtHandler := WrapByErrFmtHandler(handler)
	slog.SetDefault(slog.New(errFmtHandler))

	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
	errors.SetZerologWarnFunc(func(warning error) {
		ev := zl.Warn()
		if obj, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev.EmbedObject(obj).Msg("causalgo warning")
			return
		}
		ev.Err(warning).Msg("causalgo warning")
	})
}

// ToLogLevel converts a level name to a slog.Level. Unknown levels panic;
// the level is configuration, not data.
func ToLogLevel(level string) slog.Level {
	switch level {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		panic(fmt.Sprintf("invalid log level: %s", level))
	}
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr wraps an error for structured logging.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
