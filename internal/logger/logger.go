package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production logger at the given level. Output goes to stderr
// so that command results written to stdout stay machine readable.
func New(verbosity string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(verbosity)
	if err != nil {
		return nil, err
	}
	config.Level = level
	config.OutputPaths = []string{"stderr"}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if level.Level() > zapcore.DebugLevel {
		config.DisableStacktrace = true
	}
	return config.Build(zap.Fields(zap.String("service", "arraykit")))
}
