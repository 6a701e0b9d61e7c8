package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"socflow/internal/application/port/output"
)

var _ output.LoggerPort = (*LoggerAdapter)(nil)

type Config struct {
	Dir     string
	Name    string
	Level   string
	Console bool
}

func DefaultConfig(name string) Config {
	return Config{
		Dir:     "log",
		Name:    name,
		Level:   "info",
		Console: false,
	}
}

// LoggerAdapter writes JSON lines to a rotated file under Config.Dir and,
// optionally, human-readable lines to stderr.
type LoggerAdapter struct {
	base  *zap.Logger
	sugar *zap.SugaredLogger
	file  *lumberjack.Logger
}

func NewLoggerAdapter(cfg Config) (*LoggerAdapter, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02"), sanitize(cfg.Name))),
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level),
	}
	if cfg.Console {
		consoleCfg := zap.NewDevelopmentEncoderConfig()
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), level))
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))

	return &LoggerAdapter{
		base:  base,
		sugar: base.Sugar(),
		file:  file,
	}, nil
}

// NewFromZap wraps an existing zap logger, e.g. zaptest or zap.NewNop.
func NewFromZap(l *zap.Logger) *LoggerAdapter {
	return &LoggerAdapter{
		base:  l,
		sugar: l.WithOptions(zap.AddCallerSkip(1)).Sugar(),
	}
}

func NewNop() *LoggerAdapter {
	return NewFromZap(zap.NewNop())
}

func (l *LoggerAdapter) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

func (l *LoggerAdapter) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l *LoggerAdapter) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

func (l *LoggerAdapter) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

func (l *LoggerAdapter) WithField(key string, value any) output.LoggerPort {
	return &LoggerAdapter{
		base:  l.base,
		sugar: l.sugar.With(key, value),
		file:  l.file,
	}
}

func (l *LoggerAdapter) WithFields(fields map[string]any) output.LoggerPort {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}

	return &LoggerAdapter{
		base:  l.base,
		sugar: l.sugar.With(args...),
		file:  l.file,
	}
}

func (l *LoggerAdapter) Zap() *zap.Logger {
	return l.base
}

func (l *LoggerAdapter) Close() error {
	_ = l.sugar.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func sanitize(s string) string {
	result := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result = append(result, r)
		} else {
			result = append(result, '_')
		}
	}
	s = string(result)
	if s == "" {
		return "socflow"
	}
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}
