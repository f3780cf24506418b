package mlops

import (
	"context"

	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ctxKey is the key type for context values.
type ctxKey int

const (
	ctxKeyInvocationDep ctxKey = iota
)

// invocationDep holds invocation-scoped dependencies available via context.
// App-scoped dependencies (env, clients, services) are injected into handler
// constructors instead.
type invocationDep struct {
	logger *zap.Logger
}

// withInvocationDep injects dependencies into the invocation context.
func withInvocationDep(d *invocationDep) action.Middleware {
	return func(next action.BareHandler) action.BareHandler {
		return action.BareHandlerFunc(func(ctx context.Context, w *action.ResponseWriter, ev action.Event) error {
			ctx = context.WithValue(ctx, ctxKeyInvocationDep, d)
			return next.HandleBareAction(ctx, w, ev)
		})
	}
}

// WithLogger returns a context carrying the given logger, for unit tests that
// call handlers without the middleware stack.
func WithLogger(ctx context.Context, logs *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKeyInvocationDep, &invocationDep{logger: logs})
}

func invocationDepFromContext(ctx context.Context) *invocationDep {
	d, ok := ctx.Value(ctxKeyInvocationDep).(*invocationDep)
	if !ok {
		panic("mlops: invocationDep not found in context; is the middleware configured?")
	}
	return d
}

// Log returns a trace-correlated zap logger from the context.
func Log(ctx context.Context) *zap.Logger {
	d := invocationDepFromContext(ctx)
	return d.logger.With(invocationFields(ctx)...)
}

// Span returns the current trace span from the context.
func Span(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// invocationFields extracts trace and Lambda request correlation fields.
func invocationFields(ctx context.Context) []zap.Field {
	fields := traceFields(ctx)
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		fields = append(fields, zap.String("request_id", lc.AwsRequestID))
	}
	return fields
}

// traceFields extracts trace_id and span_id from the context for log correlation.
func traceFields(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	sc := span.SpanContext()
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
