package log

import (
	"github.com/bronystylecrazy/metaroute/build"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Level is one of debug, info, warn, error or fatal.
	Level string `mapstructure:"level"`
	// DropFields removes fields with these keys from every entry.
	DropFields []string `mapstructure:"drop_fields"`
}

func DefaultConfig() Config {
	if build.IsDevelopment() {
		return Config{Level: "debug"}
	}
	return Config{Level: "info"}
}

func NewZapLogger(cfg Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	if build.IsDevelopment() {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level, zapConfig.Level.Level()))

	var opts []zap.Option
	if len(cfg.DropFields) > 0 {
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return FilterFieldsCore(core, cfg.DropFields...)
		}))
	}
	return zapConfig.Build(opts...)
}

func parseLevel(level string, fallback zapcore.Level) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return fallback
	}
}

func NewEventLogger(log *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: log.Named("fx")}
}
