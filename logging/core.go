package logging

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func timeEncoder(config Config) zapcore.TimeEncoder {
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(config.Prefix + t.Format(config.TimeFormat))
	}
}

func newEncoder(config Config) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder(config),
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	if config.Format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

// levelFile returns a rotating file for one level: <director>/<level>.log.
func levelFile(config Config, level zapcore.Level) zapcore.WriteSyncer {
	_ = os.MkdirAll(config.Director, 0o755)
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(config.Director, level.String()+".log"),
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
		LocalTime:  true,
	})
}

// newCores builds one terminal core for every level >= config.Level, plus one
// file core per level when file logging is on.
func newCores(config Config) []zapcore.Core {
	encoder := newEncoder(config)
	minLevel := config.TransportLevel()

	var cores []zapcore.Core
	if config.LogInTerminal {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), minLevel))
	}
	if config.LogToFile {
		for level := minLevel; level <= zapcore.FatalLevel; level++ {
			exact := level
			enabler := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == exact })
			cores = append(cores, zapcore.NewCore(encoder.Clone(), levelFile(config, exact), enabler))
		}
	}
	return cores
}
