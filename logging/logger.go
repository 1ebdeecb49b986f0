package logging

import (
	"fmt"

	"go.uber.org/zap"
)

type Environment string

const (
	Development Environment = "development" // debug and above, console encoder
	Production  Environment = "production"  // info and above, JSON encoder
)

// Logger is the structured logger every service and worker receives.
type Logger interface {
	Debug(msg string, tags ...any)
	Info(msg string, tags ...any)
	Warn(msg string, tags ...any)
	Error(msg string, tags ...any)

	Debugf(template string, args ...any)
	Infof(template string, args ...any)
	Warnf(template string, args ...any)
	Errorf(template string, args ...any)

	With(tags ...any) Logger
}

type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ Logger = (*ZapLogger)(nil)

// NewZapLogger builds a zap logger for the given environment. Unknown values fall back to development.
func NewZapLogger(env Environment) (*ZapLogger, error) {
	var cfg zap.Config
	switch env {
	case Production:
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return &ZapLogger{sugar: l.Sugar()}, nil
}

// NewNopLogger discards everything. Used by tests.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{sugar: zap.NewNop().Sugar()}
}

func (z *ZapLogger) Debug(msg string, tags ...any) { z.sugar.Debugw(msg, tags...) }
func (z *ZapLogger) Info(msg string, tags ...any)  { z.sugar.Infow(msg, tags...) }
func (z *ZapLogger) Warn(msg string, tags ...any)  { z.sugar.Warnw(msg, tags...) }
func (z *ZapLogger) Error(msg string, tags ...any) { z.sugar.Errorw(msg, tags...) }

func (z *ZapLogger) Debugf(template string, args ...any) { z.sugar.Debugf(template, args...) }
func (z *ZapLogger) Infof(template string, args ...any)  { z.sugar.Infof(template, args...) }
func (z *ZapLogger) Warnf(template string, args ...any)  { z.sugar.Warnf(template, args...) }
func (z *ZapLogger) Errorf(template string, args ...any) { z.sugar.Errorf(template, args...) }

func (z *ZapLogger) With(tags ...any) Logger {
	return &ZapLogger{sugar: z.sugar.With(tags...)}
}

// Sync flushes buffered entries. Call it on shutdown.
func (z *ZapLogger) Sync() error {
	return z.sugar.Sync()
}
