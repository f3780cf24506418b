package mlops

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

// InRegion wraps an AWS client configured for a specific fixed region.
// Use this when registering and injecting clients that must target a region
// other than the one the function runs in.
//
// Registration:
//
//	mlops.WithAWSClient(func(cfg aws.Config) *mlops.InRegion[codepipeline.Client] {
//	    return mlops.NewInRegion(codepipeline.NewFromConfig(cfg), "us-east-1")
//	}, mlops.ForRegion("us-east-1"))
//
// Injection:
//
//	func NewHandlers(pipeline *mlops.InRegion[codepipeline.Client]) *Handlers
//
// Usage:
//
//	h.pipeline.Client.GetPipelineState(ctx, ...)
//	region := h.pipeline.Region // "us-east-1"
type InRegion[T any] struct {
	Client *T
	Region string
}

// newInRegion creates an InRegion wrapper for an AWS client.
func newInRegion[T any](client *T, region string) *InRegion[T] {
	return &InRegion[T]{Client: client, Region: region}
}

// clientOptions holds configuration for AWS client registration.
type clientOptions struct {
	region Region
}

// ClientOption configures AWS client registration.
type ClientOption func(*clientOptions)

// ForRegion configures the client to use a specific fixed region.
//
// The factory should return *mlops.InRegion[T] to make the region explicit in the type:
//
//	mlops.WithAWSClient(func(cfg aws.Config) *mlops.InRegion[codepipeline.Client] {
//	    return mlops.NewInRegion(codepipeline.NewFromConfig(cfg), "us-east-1")
//	}, mlops.ForRegion("us-east-1"))
func ForRegion(region string) ClientOption {
	return func(o *clientOptions) {
		o.region = FixedRegion(region)
	}
}

const awsConfigTimeout = 10 * time.Second

// NewAWSConfig loads the default AWS SDK v2 configuration.
func NewAWSConfig(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}

// provideAWSConfig is an fx provider that loads AWS config with a timeout.
// It automatically instruments the config with OpenTelemetry for AWS SDK tracing.
// The TracerProvider and Propagator are explicitly injected to avoid global state.
func provideAWSConfig(lc fx.Lifecycle, tp trace.TracerProvider, prop propagation.TextMapPropagator) (aws.Config, error) {
	ctx, cancel := context.WithTimeout(context.Background(), awsConfigTimeout)
	defer cancel()
	cfg, err := NewAWSConfig(ctx)
	if err != nil {
		return cfg, err
	}
	otelaws.AppendMiddlewares(&cfg.APIOptions,
		otelaws.WithTracerProvider(tp),
		otelaws.WithTextMapPropagator(prop),
	)
	return cfg, nil
}

// AWSClientProvider creates an fx.Option that provides an AWS client for injection.
// The factory receives an aws.Config with the region already configured.
//
// For local region clients (default), the factory returns the client directly:
//
//	mlops.WithAWSClient(func(cfg aws.Config) mlops.S3Client {
//	    return s3.NewFromConfig(cfg)
//	})
//
// For fixed region clients, wrap with InRegion[T]:
//
//	mlops.WithAWSClient(func(cfg aws.Config) *mlops.InRegion[codepipeline.Client] {
//	    return mlops.NewInRegion(codepipeline.NewFromConfig(cfg), "us-east-1")
//	}, mlops.ForRegion("us-east-1"))
func AWSClientProvider[T any](factory func(aws.Config) T, opts ...ClientOption) fx.Option {
	options := &clientOptions{
		region: LocalRegion(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return fx.Provide(func(cfg aws.Config, env Environment) T {
		awsCfg := cfg.Copy()
		if options.region != nil {
			r := options.region.resolve(env)
			if r != "" {
				awsCfg.Region = r
			}
		}
		return factory(awsCfg)
	})
}

// NewInRegion creates an InRegion wrapper for an AWS client configured for a fixed region.
// Use this in your client factory when registering with ForRegion():
//
//	mlops.WithAWSClient(func(cfg aws.Config) *mlops.InRegion[codepipeline.Client] {
//	    return mlops.NewInRegion(codepipeline.NewFromConfig(cfg), "us-east-1")
//	}, mlops.ForRegion("us-east-1"))
func NewInRegion[T any](client *T, region string) *InRegion[T] {
	return newInRegion(client, region)
}
