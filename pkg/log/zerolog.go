package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	scerrors "github.com/YuminosukeSato/scorecast/pkg/errors"
)

// ZerologProvider hands out zerolog-backed loggers that share one writer
// and one adjustable level.
type ZerologProvider struct {
	base  zerolog.Logger
	level *atomic.Int64
}

// NewZerologProvider writes JSON lines to stderr at the given level.
func NewZerologProvider(level Level) *ZerologProvider {
	return NewZerologProviderWithWriter(os.Stderr, level)
}

// NewZerologProviderWithWriter writes JSON lines to w.
func NewZerologProviderWithWriter(w io.Writer, level Level) *ZerologProvider {
	lv := &atomic.Int64{}
	lv.Store(int64(level))
	base := zerolog.New(w).With().Timestamp().Logger()
	return &ZerologProvider{base: base, level: lv}
}

// GetLogger implements LoggerProvider.
func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{logger: p.base, level: p.level}
}

// GetLoggerWithName implements LoggerProvider.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{
		logger: p.base.With().Str(ComponentKey, name).Logger(),
		level:  p.level,
	}
}

// SetLevel implements LoggerProvider.
func (p *ZerologProvider) SetLevel(level Level) {
	p.level.Store(int64(level))
}

// CaptureWarnings routes errors.Warn (convergence, undefined metric, data
// conversion warnings) through this provider.
func (p *ZerologProvider) CaptureWarnings() {
	logger := p.GetLoggerWithName("warnings")
	scerrors.SetZerologWarnFunc(func(w error) {
		logger.Warn(w.Error(), "warning", w)
	})
}

type zerologLogger struct {
	logger zerolog.Logger
	level  *atomic.Int64
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.emit(LevelDebug, msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { l.emit(LevelInfo, msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { l.emit(LevelWarn, msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { l.emit(LevelError, msg, fields) }

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.logger.With()
	eachField(fields, func(key string, value any) {
		ctx = ctx.Interface(key, fieldValue(value))
		if err, ok := value.(error); ok && key == ErrAttrKey {
			if st := extractStacktrace(err); st != "" {
				ctx = ctx.Str(StacktraceAttrKey, st)
			}
		}
	})
	return &zerologLogger{logger: ctx.Logger(), level: l.level}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= Level(l.level.Load())
}

func (l *zerologLogger) emit(level Level, msg string, fields []any) {
	if !l.Enabled(context.Background(), level) {
		return
	}
	event := l.logger.WithLevel(level.toZerolog())
	eachField(fields, func(key string, value any) {
		switch v := value.(type) {
		case zerolog.LogObjectMarshaler:
			event = event.Object(key, v)
			if err, ok := value.(error); ok {
				event = event.Str(key+".message", err.Error())
			}
		case error:
			event = event.Str(key, v.Error())
			if key == ErrAttrKey {
				var m zerolog.LogObjectMarshaler
				if errors.As(v, &m) {
					event = event.Object(ErrorTypeKey, m)
				}
				if st := extractStacktrace(v); st != "" {
					event = event.Str(StacktraceAttrKey, st)
				}
			}
		case time.Duration:
			event = event.Int64(key, v.Milliseconds())
		default:
			event = event.Interface(key, v)
		}
	})
	event.Msg(msg)
}

// eachField walks alternating key/value pairs. An error in key position is
// reported under ErrAttrKey. A trailing key without a value is reported
// under "!BADKEY" as slog does.
func eachField(fields []any, fn func(key string, value any)) {
	for i := 0; i < len(fields); {
		if err, ok := fields[i].(error); ok {
			fn(ErrAttrKey, err)
			i++
			continue
		}
		if i+1 >= len(fields) {
			fn("!BADKEY", fields[i])
			return
		}
		fn(fmt.Sprint(fields[i]), fields[i+1])
		i += 2
	}
}

func fieldValue(v any) any {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	lv := &atomic.Int64{}
	lv.Store(int64(LevelError + 1))
	return &zerologLogger{logger: zerolog.Nop(), level: lv}
}
