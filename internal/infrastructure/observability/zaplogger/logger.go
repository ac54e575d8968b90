// Package zaplogger adapts zap to the observability.Logger port. Output is
// JSON on stdout, optionally duplicated to a file, with the level and file
// path coming from service configuration rather than the process environment.
package zaplogger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/workboxhq/workbox/internal/observability"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options carries the configurable parts of the logger. The zero value means
// info level, stdout only.
type Options struct {
	// Level is a zap level name ("debug", "info", "warn", "error"). Unknown
	// or empty values fall back to info.
	Level string

	// FilePath duplicates output to the given file when set. Parent
	// directories are created as needed.
	FilePath string
}

type logger struct{ l *zap.Logger }

// New builds the service logger. fixed fields are attached to every entry.
func New(opts Options, fixed ...observability.Field) observability.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(opts.Level))
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stdout"}

	if opts.FilePath != "" {
		if err := ensureLogFile(opts.FilePath); err != nil {
			panic(fmt.Errorf("prepare log file: %w", err))
		}
		cfg.OutputPaths = append(cfg.OutputPaths, opts.FilePath)
		cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, opts.FilePath)
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	cfg.InitialFields = map[string]any{}
	for _, f := range fixed {
		cfg.InitialFields[f.Key] = f.Value
	}

	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return &logger{l: l}
}

func parseLevel(name string) zapcore.Level {
	if name == "" {
		return zapcore.InfoLevel
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func (z *logger) With(fields ...observability.Field) observability.Logger {
	if len(fields) == 0 {
		return &logger{l: z.l}
	}
	return &logger{l: z.l.With(toZapFields(fields)...)}
}

func (z *logger) Debug(msg string, fields ...observability.Field) {
	z.l.Debug(msg, toZapFields(fields)...)
}
func (z *logger) Info(msg string, fields ...observability.Field) {
	z.l.Info(msg, toZapFields(fields)...)
}
func (z *logger) Warn(msg string, fields ...observability.Field) {
	z.l.Warn(msg, toZapFields(fields)...)
}
func (z *logger) Error(msg string, fields ...observability.Field) {
	z.l.Error(msg, toZapFields(fields)...)
}

// Sync flushes any buffered log entries. Safe to call on shutdown.
func (z *logger) Sync() error {
	return z.l.Sync()
}

func toZapFields(fs []observability.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fs))
	for _, f := range fs {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func ensureLogFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
