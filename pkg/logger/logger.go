package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls how the pipeline logger is built.
type Config struct {
	Level      string // debug, info, warn, error
	Production bool   // JSON output, no colors, info floor
}

// New builds the process-wide zap logger.
//
// In production mode we emit structured JSON on stdout and never go below
// info. Otherwise we use the human-friendly development encoder so stage
// output stays readable when running the pipeline by hand.
func New(cfg Config) *zap.Logger {
	var zcfg zap.Config
	if cfg.Production {
		zcfg = zap.NewProductionConfig()
		zcfg.OutputPaths = []string{"stdout"}
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zcfg.Level = parseLevel(cfg.Level, cfg.Production)

	log, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	return log
}

func parseLevel(level string, production bool) zap.AtomicLevel {
	switch level {
	case "debug":
		if production {
			// production mode suppresses verbose logging
			return zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}
