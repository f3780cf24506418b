package mlops

import (
	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger configured from the environment.
// Uses JSON encoding suitable for CloudWatch.
// MLOPS_LOG_LEVEL controls the level (debug, info, warn, error).
func NewLogger(env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.logLevel())
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

type zapLogger struct{ *zap.Logger }

func (l zapLogger) LogUnhandledServeError(errorID string, err error) {
	l.Logger.Error("unhandled serve error", zap.String("error_id", errorID), zap.Error(err))
}

func (l zapLogger) LogEnvelopeRenderError(errorID string, err error) {
	l.Logger.Error("error while rendering response envelope", zap.String("error_id", errorID), zap.Error(err))
}

func newZapActionLogger(l *zap.Logger) action.Logger {
	return zapLogger{l.Named("action")}
}
