// Package logger wraps zap construction behind a small reusable type.
package logger

import "go.uber.org/zap"

// Logger carries the application's structured logger.
type Logger struct {
	Log *zap.Logger
}

// New returns a Logger with a no-op core; call Init to activate it.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces the logger with a production zap logger at the given
// level ("debug", "info", "warn", "error").
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	log, err := cfg.Build()
	if err != nil {
		return err
	}

	l.Log = log
	return nil
}
