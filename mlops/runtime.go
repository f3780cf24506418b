package mlops

import (
	"context"

	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// InvocationHandler is the signature the Lambda runtime calls for each agent
// action. It never returns a non-nil error: whatever happened inside, the
// agent must get a response envelope it can relay to the model.
type InvocationHandler func(ctx context.Context, payload json.RawMessage) (action.Envelope, error)

// LambdaParams holds the dependencies for assembling the Lambda entrypoint.
type LambdaParams struct {
	fx.In

	Env        Environment
	Mux        *Mux
	Logger     *zap.Logger
	TracerProv trace.TracerProvider
}

// NewLambdaHandler installs the invocation middleware on the mux and returns
// the entrypoint the Lambda runtime calls. It must construct before the
// routing function registers handlers, since the mux rejects middleware added
// after the first route.
func NewLambdaHandler(params LambdaParams) InvocationHandler {
	d := &invocationDep{
		logger: params.Logger,
	}

	params.Mux.Use(withInvocationDep(d))
	params.Mux.Use(withInvocationSpan(params.TracerProv))
	params.Mux.Use(withInvocationLog())
	params.Mux.Use(errorBoundary())

	return func(ctx context.Context, payload json.RawMessage) (action.Envelope, error) {
		var ev action.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			// A zero event dispatches to the unknown-path response, which
			// tells the agent which API paths exist. That beats failing the
			// invocation outright on a payload we cannot decode.
			params.Logger.Warn("failed to decode invocation payload", zap.Error(err))
		}

		return params.Mux.Dispatch(ctx, ev), nil
	}
}

// startLambdaParams holds the dependencies for the Lambda lifecycle hook.
type startLambdaParams struct {
	fx.In

	Handler InvocationHandler
	Env     Environment
	Logger  *zap.Logger
	Tagger  *Tagger
}

// startLambdaHook registers lifecycle hooks that hand the process over to the
// Lambda runtime. Without a runtime API configured (local runs, tests) the
// hook performs the cold-start work and returns without entering the
// invocation loop.
func startLambdaHook(lc fx.Lifecycle, p startLambdaParams) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if p.Env.lambdaRuntimeAPI() == "" {
				p.Logger.Info("no Lambda runtime API configured; not entering the invocation loop")
				return nil
			}

			tagStartupLogGroups(ctx, p.Env, p.Tagger, p.Logger)

			p.Logger.Info("starting Lambda invocation loop",
				zap.String("function_name", p.Env.functionName()))
			go lambda.StartWithOptions(p.Handler,
				lambda.WithContext(context.Background()),
				lambda.WithEnableSIGTERM(func() {
					p.Logger.Info("received SIGTERM from the Lambda runtime")
				}),
			)
			return nil
		},
		OnStop: func(context.Context) error {
			p.Logger.Info("stopping")
			return nil
		},
	})
}

// tagStartupLogGroups applies the standard automation tags to the agent's own
// log group and then sweeps the known MLOps log group prefixes. Best effort;
// a cold start must never fail over tagging.
func tagStartupLogGroups(ctx context.Context, env Environment, tagger *Tagger, logs *zap.Logger) {
	if name := env.functionName(); name != "" {
		if _, err := tagger.TagLogGroupsWithPrefix(ctx, "/aws/lambda/"+name, nil); err != nil {
			logs.Warn("failed to tag agent log group", zap.Error(err))
		}
	}

	tagged := tagger.TagAgentLogGroups(ctx, logs)
	logs.Info("tagged MLOps log groups", zap.Int("count", tagged))
}
