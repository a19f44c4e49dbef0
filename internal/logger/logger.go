package logger

import (
	"errors"
	"strings"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Additional-Code/restaurant/internal/config"
)

var Module = fx.Provide(New)

// New builds the service logger and flushes it when the app stops.
func New(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	logger, err := Build(cfg.Observability)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func() error { return ignoreSyncErr(logger.Sync()) }))
	return logger, nil
}

// Build creates a zap logger from the observability settings. Unknown levels
// fall back to info; "console" selects the development encoder.
func Build(obs config.Observability) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(obs.LogLevel))
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := encoderFor(obs.LogEncoding)
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(
		zap.String("service", obs.ServiceName),
		zap.String("environment", obs.Environment),
	), nil
}

func encoderFor(encoding string) zap.Config {
	if encoding == "console" {
		c := zap.NewDevelopmentConfig()
		c.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
		c.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return c
	}

	c := zap.NewProductionConfig()
	c.Encoding = "json"
	enc := &c.EncoderConfig
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)
	enc.EncodeDuration = zapcore.StringDurationEncoder
	enc.EncodeLevel = zapcore.LowercaseLevelEncoder
	return c
}

// Syncing stdout/stderr fails on terminals and pipes with EINVAL or ENOTTY.
func ignoreSyncErr(err error) error {
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
