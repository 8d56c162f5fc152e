// Package telemetry provides the structured logger shared by the stream
// manager and the transport adapters.
package telemetry

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the configured minimum severity, given as a string so it can
// come straight out of a config file or environment variable.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) zapLevel() zapcore.Level {
	switch Level(strings.ToLower(string(l))) {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Options configures a Logger.
type Options struct {
	Level Level
	// JSON selects the JSON encoder over the human-readable console one.
	JSON bool
}

// DefaultOptions returns console-encoded, info-level logging to stderr.
func DefaultOptions() Options {
	return Options{Level: LevelInfo}
}

// Logger wraps a zap.SugaredLogger with the fields this module's
// components attach by convention (acquisition id, connection id, stream
// manager state).
type Logger struct {
	s *zap.SugaredLogger
}

// New builds a Logger from opt.
func New(opt Options) Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if opt.JSON {
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), opt.Level.zapLevel())
	return Logger{s: zap.New(core, zap.AddCaller()).Sugar()}
}

// Nop returns a Logger that discards everything, used as the zero-value
// default wherever a caller does not supply one.
func Nop() Logger {
	return Logger{s: zap.NewNop().Sugar()}
}

func (l Logger) With(args ...any) Logger {
	if l.s == nil {
		return Nop()
	}
	return Logger{s: l.s.With(args...)}
}

func (l Logger) Debugw(msg string, kv ...any) {
	if l.s != nil {
		l.s.Debugw(msg, kv...)
	}
}

func (l Logger) Infow(msg string, kv ...any) {
	if l.s != nil {
		l.s.Infow(msg, kv...)
	}
}

func (l Logger) Warnw(msg string, kv ...any) {
	if l.s != nil {
		l.s.Warnw(msg, kv...)
	}
}

func (l Logger) Errorw(msg string, kv ...any) {
	if l.s != nil {
		l.s.Errorw(msg, kv...)
	}
}
