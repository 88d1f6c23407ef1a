package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options tune the production logger. Zero values keep zap's defaults.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

// New creates a new zap logger
func New(development bool) (*zap.Logger, error) {
	return NewWithOptions(development, Options{})
}

// NewWithOptions creates a logger honouring a configured level and encoding.
// Development mode always logs at debug level with colored console output.
func NewWithOptions(development bool, opts Options) (*zap.Logger, error) {
	var cfg zap.Config

	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		if opts.Level != "" {
			level, err := zapcore.ParseLevel(opts.Level)
			if err != nil {
				return nil, fmt.Errorf("log level: %w", err)
			}
			cfg.Level = zap.NewAtomicLevelAt(level)
		}
		if opts.Format != "" {
			cfg.Encoding = opts.Format
		}
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// Must creates a logger or panics
func Must(development bool) *zap.Logger {
	log, err := New(development)
	if err != nil {
		panic(err)
	}
	return log
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
