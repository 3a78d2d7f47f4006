package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// NewDefaultLogger creates a logger with default configuration using zap
func NewDefaultLogger() Logger {
	logger, err := NewZapLogger(DefaultLogConfig())
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default zap logger: %v", err))
	}
	return logger
}

// InitGlobalLogger installs the process logger from LOG_LEVEL, LOG_FORMAT
// and LOG_FILE. Without LOG_FILE the logger writes to stdout.
//
// The returned closer releases the log file, if one was opened.
func InitGlobalLogger() (io.Closer, error) {
	config := DefaultLogConfig()

	var closer io.Closer = nopCloser{}
	logFileName := os.Getenv("LOG_FILE")
	if logFileName != "" {
		file, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", logFileName, err)
		}
		config.Output = file
		closer = file
	}

	logger, err := NewZapLogger(config)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	SetGlobalLogger(logger)

	logger.Info("Logger initialized",
		Field{"level", config.Level.String()},
		Field{"format", string(config.Format)},
		Field{"log_file", logFileName},
	)
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// MustSync flushes any buffered log entries for zap loggers
// This should be called before application exit
func MustSync() {
	if zapLogger, ok := GetGlobalLogger().(*ZapAdapter); ok {
		_ = zapLogger.Sync()
	}
}

// WithFields is a convenience function to add fields to the global logger
func WithFields(fields ...Field) Logger {
	return GetGlobalLogger().WithFields(fields...)
}

// Err creates an error field with key "error"
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Component tags a child logger with the subsystem that owns it
func Component(name string) Field {
	return Field{Key: "component", Value: name}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() Logger {
	return &ZapAdapter{logger: zap.NewNop()}
}
