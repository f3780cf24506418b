package mlops

import (
	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"go.uber.org/zap"
)

// LambdaMaxResponsePayloadBytes is AWS Lambda's 6 MiB limit minus 1 KiB headroom for envelope overhead.
const LambdaMaxResponsePayloadBytes = 6*1024*1024 - 1024

// Mux is an alias for action.Mux.
type Mux = action.Mux

// NewMux creates a new Mux with sensible defaults for Lambda.
func NewMux(logs *zap.Logger) *Mux {
	return action.NewMuxWith(
		LambdaMaxResponsePayloadBytes,
		newZapActionLogger(logs),
	)
}
