package shared

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerAdapter interface {
	Error(msg string, err error, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	With(fields ...zap.Field) LoggerAdapter
}

type zapLogger struct {
	logger *zap.Logger
}

var _ LoggerAdapter = (*zapLogger)(nil)

func (z *zapLogger) Error(msg string, err error, fields ...zap.Field) {
	z.logger.Error(msg, append(fields, zap.Error(err))...)
}

func (z *zapLogger) Warn(msg string, fields ...zap.Field) {
	z.logger.Warn(msg, fields...)
}

func (z *zapLogger) Info(msg string, fields ...zap.Field) {
	z.logger.Info(msg, fields...)
}

func (z *zapLogger) Debug(msg string, fields ...zap.Field) {
	z.logger.Debug(msg, fields...)
}

func (z *zapLogger) With(fields ...zap.Field) LoggerAdapter {
	return &zapLogger{logger: z.logger.With(fields...)}
}

// NewStdLogger logs to stderr in zap's production JSON format.
func NewStdLogger() LoggerAdapter {
	logger, err := zap.NewProduction(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	return &zapLogger{logger: logger}
}

// NewFileLogger logs to a lumberjack-rotated file.
func NewFileLogger(filename string, maxSizeMB int, maxBackups int, maxAgeDays int, compress bool) LoggerAdapter {
	hook := lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   compress,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&hook),
		zapcore.DebugLevel,
	)

	return &zapLogger{logger: zap.New(core, zap.AddCallerSkip(1))}
}

// NewNopLogger discards everything. Meant for tests.
func NewNopLogger() LoggerAdapter {
	return &zapLogger{logger: zap.NewNop()}
}
