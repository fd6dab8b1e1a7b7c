package logging

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerKey struct{}

// FileConfig enables a rotating log file next to the stderr output.
type FileConfig struct {
	Path       string `envconfig:"BOTMANAGER_LOG_FILE"`
	MaxSizeMB  int    `envconfig:"BOTMANAGER_LOG_MAX_SIZE" default:"100"`
	MaxBackups int    `envconfig:"BOTMANAGER_LOG_MAX_BACKUPS" default:"3"`
	MaxAgeDays int    `envconfig:"BOTMANAGER_LOG_MAX_AGE" default:"7"`
	Compress   bool   `envconfig:"BOTMANAGER_LOG_COMPRESS" default:"true"`
}

var (
	defaultLogger     *zap.SugaredLogger
	defaultLoggerOnce sync.Once
)

func productionConfig(debug bool) zap.Config {
	config := zap.NewProductionConfig()
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.LevelKey = "severity"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return config
}

// NewLogger creates a logger writing JSON lines to stderr.
func NewLogger(debug bool) *zap.SugaredLogger {
	logger, err := productionConfig(debug).Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}

	return logger.Sugar()
}

// NewLoggerWithFile tees the stderr logger into a lumberjack rotated file.
func NewLoggerWithFile(debug bool, file FileConfig) *zap.SugaredLogger {
	if file.Path == "" {
		return NewLogger(debug)
	}

	config := productionConfig(debug)
	encoder := zapcore.NewJSONEncoder(config.EncoderConfig)
	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
		Compress:   file.Compress,
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), config.Level),
		zapcore.NewCore(encoder, writer, config.Level),
	)

	return zap.New(core, zap.AddCaller()).Sugar()
}

func DefaultLogger() *zap.SugaredLogger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = NewLogger(false).Named("default")
	})

	return defaultLogger
}

func WithLogger(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, LoggerKey{}, logger)
}

func FromContext(ctx context.Context) *zap.SugaredLogger {
	if logger, ok := ctx.Value(LoggerKey{}).(*zap.SugaredLogger); ok {
		return logger
	}

	return DefaultLogger()
}
