package signoff

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger for config: production JSON output unless
// Development is set.
func NewLogger(config LoggingConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	if config.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(config.Level)); err != nil {
			return nil, err
		}
		zapConfig.Level = zap.NewAtomicLevelAt(level)
	}
	zapConfig.EncoderConfig.FunctionKey = "func"
	return zapConfig.Build()
}
