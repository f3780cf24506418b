package mlops

import (
	"context"
	"time"

	"github.com/aws-observability/aws-otel-go/exporters/xrayudp"
	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/detectors/aws/lambda"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

const tracingInitTimeout = 5 * time.Second

// tracerName identifies spans created by this package.
const tracerName = "github.com/aws-samples/sample-mlops-agent-for-bedrock/mlops"

// NewTracerProvider creates and configures the OpenTelemetry TracerProvider.
// Supported exporters via MLOPS_TRACING_EXPORTER: "stdout" (default), "xrayudp" (Lambda).
// Shutdown is handled automatically via fx.Lifecycle.
func NewTracerProvider(lc fx.Lifecycle, env Environment) (trace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), tracingInitTimeout)
	defer cancel()

	exporterType := env.otelExporter()

	exporter, err := newExporter(ctx, exporterType)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, exporterType, env.serviceName())
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	}
	if exporterType == "xrayudp" {
		opts = append(opts, sdktrace.WithIDGenerator(xray.NewIDGenerator()))
	}

	tp := sdktrace.NewTracerProvider(opts...)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})

	return tp, nil
}

// NewPropagator creates a TextMapPropagator based on the exporter type.
// For xrayudp: uses X-Ray propagator for AWS Lambda environments.
// For stdout/default: uses W3C TraceContext + Baggage composite propagator.
func NewPropagator(env Environment) propagation.TextMapPropagator {
	if env.otelExporter() == "xrayudp" {
		return xray.Propagator{}
	}
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// newExporter creates a span exporter based on the exporter type.
func newExporter(ctx context.Context, exporterType string) (sdktrace.SpanExporter, error) {
	switch exporterType {
	case "stdout", "":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "xrayudp":
		return xrayudp.NewSpanExporter(ctx)
	default:
		return nil, errors.Newf("unsupported MLOPS_TRACING_EXPORTER: %q (supported: stdout, xrayudp)", exporterType)
	}
}

// newResource creates a resource with appropriate attributes for the exporter.
func newResource(ctx context.Context, exporterType, serviceName string) (*resource.Resource, error) {
	if exporterType == "xrayudp" {
		// Use Lambda resource detector for production Lambda environment.
		lambdaDetector := lambda.NewResourceDetector()
		return lambdaDetector.Detect(ctx)
	}
	// Use service name for local development.
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	), nil
}

// withInvocationSpan wraps every invocation in a span named after the api
// path. The TracerProvider is explicitly injected to avoid global state.
func withInvocationSpan(tp trace.TracerProvider) action.Middleware {
	tracer := tp.Tracer(tracerName)

	return func(next action.BareHandler) action.BareHandler {
		return action.BareHandlerFunc(func(ctx context.Context, w *action.ResponseWriter, ev action.Event) error {
			ctx, span := tracer.Start(ctx, "invoke "+ev.APIPath,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("mlops.action_group", ev.ActionGroup),
					attribute.String("mlops.api_path", ev.APIPath),
					attribute.String("mlops.http_method", ev.HTTPMethod),
				),
			)
			defer span.End()

			err := next.HandleBareAction(ctx, w, ev)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "invocation failed")
			}
			span.SetAttributes(attribute.Int("mlops.status_code", w.Status()))

			return err
		})
	}
}
