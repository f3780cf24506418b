package mlops

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/codeconnections"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/servicecatalog"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// App wraps an fx.App for lifecycle management.
type App struct {
	app *fx.App
}

// AppConfig holds configuration for the app.
type AppConfig struct {
	FxOptions []fx.Option
}

// Option configures the App.
type Option func(*AppConfig)

// WithAWSClient registers an additional AWS SDK v2 client for dependency
// injection. The core service clients are always provided; use this for
// clients the routing function needs beyond them.
//
// By default, clients target the local region (AWS_REGION env var):
//
//	mlops.WithAWSClient(func(cfg aws.Config) *athena.Client {
//	    return athena.NewFromConfig(cfg)
//	})
//
// For a fixed region, wrap with InRegion[T] and use ForRegion():
//
//	mlops.WithAWSClient(func(cfg aws.Config) *mlops.InRegion[codepipeline.Client] {
//	    return mlops.NewInRegion(codepipeline.NewFromConfig(cfg), "us-east-1")
//	}, mlops.ForRegion("us-east-1"))
func WithAWSClient[T any](factory func(aws.Config) T, opts ...ClientOption) Option {
	return func(c *AppConfig) {
		c.FxOptions = append(c.FxOptions, AWSClientProvider(factory, opts...))
	}
}

// WithFx adds fx options for dependency injection.
func WithFx(fxOpts ...fx.Option) Option {
	return func(c *AppConfig) {
		c.FxOptions = append(c.FxOptions, fxOpts...)
	}
}

// FxOptions returns the complete dependency graph for an app serving the
// given routing function. [NewApp] builds on it, and the mlopstest package
// constructs the identical graph on fxtest for fail-fast wiring errors.
//
// The routing function can request any provided type; the default [Register]
// accepts (*Mux, *Handlers).
func FxOptions[E Environment](routing any, opts ...Option) []fx.Option {
	var cfg AppConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	baseOpts := make([]fx.Option, 0, 27+len(cfg.FxOptions))
	baseOpts = append(baseOpts, []fx.Option{
		fx.NopLogger,
		fx.Provide(ParseEnv[E]()),
		fx.Provide(func(e E) Environment { return e }),
		fx.Provide(func(e E) (*zap.Logger, error) { return NewLogger(e) }),
		fx.Provide(NewMux),
		fx.Provide(NewTracerProvider),
		fx.Provide(NewPropagator),
		fx.Provide(provideAWSConfig),
		fx.Provide(func(cfg aws.Config) (SecretReader, error) {
			return NewAWSSecretReader(cfg)
		}),
		fx.Provide(NewHTTPTransport),

		AWSClientProvider(func(cfg aws.Config) SageMakerClient { return sagemaker.NewFromConfig(cfg) }),
		AWSClientProvider(func(cfg aws.Config) S3Client { return s3.NewFromConfig(cfg) }),
		AWSClientProvider(func(cfg aws.Config) ServiceCatalogClient { return servicecatalog.NewFromConfig(cfg) }),
		AWSClientProvider(func(cfg aws.Config) CodeConnectionsClient { return codeconnections.NewFromConfig(cfg) }),
		AWSClientProvider(func(cfg aws.Config) CodePipelineClient { return codepipeline.NewFromConfig(cfg) }),
		AWSClientProvider(func(cfg aws.Config) IAMClient { return iam.NewFromConfig(cfg) }),
		AWSClientProvider(func(cfg aws.Config) STSClient { return sts.NewFromConfig(cfg) }),
		AWSClientProvider(func(cfg aws.Config) LogsClient { return cloudwatchlogs.NewFromConfig(cfg) }),

		fx.Provide(NewProvisioner),
		fx.Provide(NewRoleFinder),
		fx.Provide(NewDiscovery),
		fx.Provide(NewGitHub),
		fx.Provide(NewTagger),
		fx.Provide(NewHandlers),
		fx.Provide(NewLambdaHandler),
		fx.Invoke(startLambdaHook),
		fx.Invoke(routing),
	}...)

	baseOpts = append(baseOpts, cfg.FxOptions...)
	return baseOpts
}

// NewApp creates a batteries-included agent runtime with dependency
// injection.
//
// The routing function maps API paths to handlers. Most deployments pass
// [Register], which mounts every operation:
//
//	mlops.NewApp[mlops.BaseEnvironment](mlops.Register).Run()
//
// A custom routing function can mount a subset, or request extra types
// provided via options:
//
//	mlops.NewApp[Env](func(m *mlops.Mux, h *mlops.Handlers) {
//	    m.HandleFunc("/create-mlflow-server", h.CreateMLflowServer)
//	}).Run()
func NewApp[E Environment](routing any, opts ...Option) *App {
	return &App{
		app: fx.New(FxOptions[E](routing, opts...)...),
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() {
	a.app.Run()
}

// Start starts the application with the given context.
func (a *App) Start(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.app.StopTimeout())
	defer cancel()

	return a.app.Stop(stopCtx)
}
