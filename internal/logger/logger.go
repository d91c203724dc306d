package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/crowdfund/backend/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	devLogFile        = "logs.log"
	productionLogFile = "logs/logs.log"
	timestampLayout   = "Jan-02-2006 15:04:05"
)

// New builds the process logger for the configured deployment mode.
//
// development: colored "level: message" lines on stdout at info, warnings and
// above are also appended to logs.log.
// production: timestamped lines written to logs/logs.log, or to stdout when
// running under CI.
func New(cfg *config.Config) (*zap.Logger, error) {
	switch cfg.NodeEnv {
	case config.EnvTest:
		return zap.NewNop(), nil
	case config.EnvProduction:
		return newProduction(cfg.CI, productionLogFile)
	default:
		return newDevelopment(devLogFile)
	}
}

func newDevelopment(filePath string) (*zap.Logger, error) {
	consoleEnc := zapcore.EncoderConfig{
		LevelKey:    "level",
		MessageKey:  "msg",
		EncodeLevel: zapcore.CapitalColorLevelEncoder,
	}
	fileEnc := consoleEnc
	fileEnc.EncodeLevel = zapcore.CapitalLevelEncoder

	file, err := openLogFile(filePath)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.Lock(os.Stdout), zapcore.InfoLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(fileEnc), file, zapcore.WarnLevel),
	)
	return zap.New(core), nil
}

func newProduction(ci bool, filePath string) (*zap.Logger, error) {
	enc := zapcore.EncoderConfig{
		TimeKey:     "ts",
		LevelKey:    "level",
		MessageKey:  "msg",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
		EncodeTime:  zapcore.TimeEncoderOfLayout(timestampLayout),
	}

	var sink zapcore.WriteSyncer
	if ci {
		sink = zapcore.Lock(os.Stdout)
	} else {
		file, err := openLogFile(filePath)
		if err != nil {
			return nil, err
		}
		sink = file
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), sink, zapcore.InfoLevel)
	return zap.New(core, zap.AddCaller()), nil
}

func openLogFile(path string) (zapcore.WriteSyncer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return zapcore.AddSync(f), nil
}
