package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Field = zap.Field

type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
}

type Config struct {
	Level string
	Dir   string
}

// NewLogger builds a zap logger with two cores: info and below, warn and above.
// With an empty Dir they write to stdout and stderr, otherwise to info.log and error.log.
func NewLogger(cfg Config) (*zap.Logger, func(), error) {
	minLevel, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	infoSink, errorSink := zapcore.AddSync(os.Stdout), zapcore.AddSync(os.Stderr)
	closers := []func() error{}

	if cfg.Dir != "" {
		infoFile, err := os.OpenFile(filepath.Join(cfg.Dir, "info.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, nil, fmt.Errorf("open info log file: %w", err)
		}

		errorFile, err := os.OpenFile(filepath.Join(cfg.Dir, "error.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			infoFile.Close()
			return nil, nil, fmt.Errorf("open error log file: %w", err)
		}

		infoSink, errorSink = zapcore.AddSync(infoFile), zapcore.AddSync(errorFile)
		closers = append(closers, infoFile.Close, errorFile.Close)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	infoCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		infoSink,
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= minLevel && lvl <= zapcore.InfoLevel
		}),
	)

	errorCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		errorSink,
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= minLevel && lvl >= zapcore.WarnLevel
		}),
	)

	log := zap.New(zapcore.NewTee(infoCore, errorCore), zap.AddCaller())

	cleanup := func() {
		_ = log.Sync()
		for _, c := range closers {
			_ = c()
		}
	}

	return log, cleanup, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

func StringField(key, value string) Field {
	return zap.String(key, value)
}

func ErrorField(key string, err error) Field {
	return zap.NamedError(key, err)
}

func AnyField(key string, value interface{}) Field {
	return zap.Any(key, value)
}

func IntField(key string, value int) Field {
	return zap.Int(key, value)
}

func DurationField(key string, value time.Duration) Field {
	return zap.Duration(key, value)
}
