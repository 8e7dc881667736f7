package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
)

// ZapConfig defines the zap backend configuration
type ZapConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json", "console"
	Output string `yaml:"output"` // "stdout", "stderr"
}

// ZapBackend owns a zap logger and exposes it as LogFuncs
type ZapBackend struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

// NewZapBackend creates a zap logger from configuration
func NewZapBackend(config ZapConfig) (*ZapBackend, error) {
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		return nil, errors.NewValidationError("invalid log level: "+config.Level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	switch config.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var writeSyncer zapcore.WriteSyncer
	switch config.Output {
	case "stderr":
		writeSyncer = zapcore.Lock(zapcore.AddSync(os.Stderr))
	default:
		writeSyncer = zapcore.Lock(zapcore.AddSync(os.Stdout))
	}

	core := zapcore.NewCore(encoder, writeSyncer, zap.NewAtomicLevelAt(level))
	zapLogger := zap.New(core)

	return &ZapBackend{
		logger: zapLogger,
		sugar:  zapLogger.Sugar(),
	}, nil
}

// LogFuncs adapts the backend to the LogFuncs table consumed by NewLogger
func (z *ZapBackend) LogFuncs() LogFuncs {
	return LogFuncs{
		Debugf: z.sugar.Debugf,
		Infof:  z.sugar.Infof,
		Warnf:  z.sugar.Warnf,
		Errorf: z.sugar.Errorf,
	}
}

// Sync flushes any buffered log entries
func (z *ZapBackend) Sync() error {
	return z.logger.Sync()
}
