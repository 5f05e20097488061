// Package log provides the structured logging interface used across scorecast.
//
// The interface is slog-compatible so the backend can be swapped without
// touching call sites. Production code uses the zerolog backend from
// NewZerologProvider; tests use NewTestLogger, which captures JSON lines in
// memory.
//
// Components never reach for a global logger. Each stage receives a Logger
// and narrows it with With:
//
//	logger := provider.GetLoggerWithName("trainer").With(
//	    log.RunIDKey, runID,
//	    log.StageKey, "training",
//	)
//	logger.Info("candidate evaluated",
//	    log.CandidateKey, "Ridge",
//	    log.R2ScoreKey, 0.87,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. An error passed where a key is
// expected is logged under ErrAttrKey, and backends that understand
// cockroachdb/errors attach its stack trace.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs general operational information such as row counts and
	// candidate scores.
	Info(msg string, fields ...any)

	// Warn logs conditions that do not stop the pipeline, for example a
	// convergence warning from coordinate descent.
	//
	//   logger.Warn("model below threshold",
	//       log.R2ScoreKey, 0.41,
	//       log.ThresholdKey, 0.6,
	//   )
	Warn(msg string, fields ...any)

	// Error logs an error condition. The error itself is usually the first
	// field:
	//
	//   logger.Error("stage failed", err, log.StageKey, "ingestion")
	Error(msg string, fields ...any)

	// With returns a Logger that includes fields in every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level would be emitted. Use it to
	// skip building expensive fields.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates and configures loggers.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum level for all loggers created by this provider,
	// including ones handed out earlier.
	SetLevel(level Level)
}
