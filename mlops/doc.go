// Package mlops provides a batteries-included runtime for the Bedrock agent
// action group that automates SageMaker MLOps workflows.
//
// # Overview
//
// mlops handles the boilerplate of running an agent action group on AWS
// Lambda: environment parsing, structured logging, OpenTelemetry tracing,
// AWS SDK clients, GitHub access, and the dispatch of agent action
// invocations to handlers. A complete application can be created in a
// single call:
//
//	mlops.NewApp[mlops.BaseEnvironment](mlops.Register).Run()
//
// The routing function can request any types that are provided via fx
// options. [Register] wires the full operation set; a custom routing
// function can wire a subset:
//
//	mlops.NewApp[Env](func(m *mlops.Mux, h *mlops.Handlers) {
//	    m.HandleFunc("/list-mlops-templates", h.ListMLOpsTemplates)
//	}).Run()
//
// # Environment Configuration
//
// Define your environment by embedding [BaseEnvironment]:
//
//	type Env struct {
//	    mlops.BaseEnvironment
//	    PortfolioID string `env:"PORTFOLIO_ID,required"`
//	}
//
// BaseEnvironment provides the following environment variables:
//
//	| Variable                        | Required | Default      | Description                                        |
//	|---------------------------------|----------|--------------|----------------------------------------------------|
//	| MLOPS_SERVICE_NAME              | No       | mlops-agent  | Service name for logging and tracing               |
//	| MLOPS_LOG_LEVEL                 | No       | info         | Log level (debug, info, warn, error)               |
//	| MLOPS_TRACING_EXPORTER          | No       | stdout       | Trace exporter: "stdout" or "xrayudp"              |
//	| MLOPS_ALLOW_PROJECT_DELETE      | No       | false        | Permit the project delete action                   |
//	| MLOPS_GITHUB_TOKEN_SECRET       | No       | -            | Secrets Manager id holding a GitHub token          |
//	| MLOPS_GITHUB_TOKEN_SECRET_PATH  | No       | token        | gjson path of the token inside the secret          |
//	| MLOPS_GITHUB_RETRY_STATUS_CODES | No       | 429,500-599  | Statuses that trigger a GitHub request retry       |
//	| MLOPS_GITHUB_RETRY_MAX_ATTEMPTS | No       | 3            | Attempt cap for retried GitHub requests            |
//	| MLOPS_GITHUB_RATE_LIMIT         | No       | 10           | GitHub calls allowed per rate period               |
//	| MLOPS_GITHUB_RATE_PERIOD        | No       | 60s          | Sliding window for the GitHub rate limit           |
//	| MLOPS_POLL_INTERVAL             | No       | 10s          | Interval between readiness checks                  |
//	| MLOPS_POLL_TIMEOUT              | No       | 10m          | Overall budget for readiness polling               |
//	| MLOPS_PROVISION_SETTLE          | No       | 2s           | Wait after creating an S3 bucket                   |
//	| MLOPS_PORTFOLIO_SETTLE          | No       | 5s           | Wait after enabling the Service Catalog portfolio  |
//	| AWS_REGION                      | No       | us-east-1    | AWS region (set automatically by Lambda runtime)   |
//
// AWS_LAMBDA_FUNCTION_NAME and AWS_LAMBDA_RUNTIME_API are read when the
// Lambda runtime sets them; outside Lambda the runtime loop is not started,
// which keeps the fx graph startable in tests.
//
// # Handlers
//
// [Handlers] implements every agent operation on top of narrow AWS client
// interfaces ([S3Client], [SageMakerClient], and friends). Clients are
// injected via fx, so tests construct Handlers directly with fakes:
//
//	h := mlops.NewHandlers(mlops.HandlersParams{
//	    Env:       env,
//	    SageMaker: &fakeSageMaker{},
//	})
//
// # Context
//
// Handlers receive a standard context.Context. Use the package-level
// functions to access invocation-scoped values:
//
//	func (h *Handlers) ListMLOpsTemplates(ctx context.Context, w *action.ResponseWriter, ev action.Event, params action.Params) error {
//	    mlops.Log(ctx).Info("listing templates")
//	    mlops.Span(ctx).AddEvent("search started")
//	    // ...
//	}
//
// Available functions:
//
//   - [Log] - trace-correlated zap logger
//   - [Span] - current OpenTelemetry span for custom instrumentation
//
// # Error Handling
//
// Handlers return errors; they do not render failure envelopes themselves
// unless the response needs extra fields. A [action.Error] carries the
// status code (and optional suggestions) to the agent verbatim. Any other
// error is replaced by a correlation id and a generic 500 body so internal
// details never reach the model. See [action] for the envelope mechanics.
//
// # Secrets
//
// [SecretReader] retrieves secrets from AWS Secrets Manager with caching.
// Secrets are fetched per-call to support rotation without redeployment.
// The GitHub client resolves its token this way when
// MLOPS_GITHUB_TOKEN_SECRET is configured.
//
// # Tracing
//
// OpenTelemetry tracing is configured based on MLOPS_TRACING_EXPORTER:
//
//   - "stdout" (default): Pretty-printed spans for local development
//   - "xrayudp": X-Ray UDP exporter for Lambda with proper trace ID format
//
// The tracer provider and propagator are injected explicitly (no globals).
// AWS SDK calls and outbound GitHub requests are instrumented through the
// same provider, so every invocation produces one connected trace.
//
// # Testing
//
// The companion [mlopstest] package seeds the base environment, builds the
// fx app with fxtest, and invokes handlers without the Lambda runtime:
//
//	mlopstest.SetBaseEnv(t)
//	app := mlopstest.New[mlops.BaseEnvironment](t, mlops.Register)
//	app.RequireStart()
//	t.Cleanup(app.RequireStop)
//
// Unit tests combine [WithLogger] with [mlopstest.CallHandler] to run a
// single handler against fakes.
package mlops
