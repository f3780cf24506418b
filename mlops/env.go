package mlops

import (
	"time"

	intervalexpr "github.com/MawKKe/integer-interval-expressions-go"
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Environment defines the interface that all environment configurations must implement.
// Embed BaseEnvironment in your struct to satisfy this interface.
type Environment interface {
	serviceName() string
	logLevel() zapcore.Level
	otelExporter() string
	awsRegion() string
	functionName() string
	lambdaRuntimeAPI() string
	allowProjectDelete() bool
	githubTokenSecret() string
	githubTokenSecretPath() string
	githubRetryStatusCodes() string
	githubRetryMaxAttempts() int
	githubRateLimit() int
	githubRatePeriod() time.Duration
	pollInterval() time.Duration
	pollTimeout() time.Duration
	provisionSettle() time.Duration
	portfolioSettle() time.Duration
}

// BaseEnvironment contains the environment variables the runtime reads.
// Embed this in your custom environment struct.
type BaseEnvironment struct {
	ServiceName  string        `env:"MLOPS_SERVICE_NAME" envDefault:"mlops-agent"`
	LogLevel     zapcore.Level `env:"MLOPS_LOG_LEVEL" envDefault:"info"`
	OtelExporter string        `env:"MLOPS_TRACING_EXPORTER" envDefault:"stdout"`
	// AWSRegion falls back to us-east-1 so local invocations resolve a
	// region even without a configured profile. The Lambda runtime always
	// sets it.
	AWSRegion string `env:"AWS_REGION" envDefault:"us-east-1"`
	// FunctionName and LambdaRuntimeAPI are set by the Lambda runtime. When
	// LambdaRuntimeAPI is empty the runtime loop is not started.
	FunctionName     string `env:"AWS_LAMBDA_FUNCTION_NAME"`
	LambdaRuntimeAPI string `env:"AWS_LAMBDA_RUNTIME_API"`
	// AllowProjectDelete gates the destructive project delete action.
	AllowProjectDelete bool `env:"MLOPS_ALLOW_PROJECT_DELETE" envDefault:"false"`
	// GithubTokenSecret optionally names a Secrets Manager secret holding a
	// GitHub token; GithubTokenSecretPath is the gjson path of the token
	// inside the secret value.
	GithubTokenSecret      string `env:"MLOPS_GITHUB_TOKEN_SECRET"`
	GithubTokenSecretPath  string `env:"MLOPS_GITHUB_TOKEN_SECRET_PATH" envDefault:"token"`
	GithubRetryStatusCodes string `env:"MLOPS_GITHUB_RETRY_STATUS_CODES" envDefault:"429,500-599"`
	GithubRetryMaxAttempts int    `env:"MLOPS_GITHUB_RETRY_MAX_ATTEMPTS" envDefault:"3"`
	// GithubRateLimit calls are allowed per GithubRatePeriod; the limiter
	// sleeps until the window frees up.
	GithubRateLimit  int           `env:"MLOPS_GITHUB_RATE_LIMIT" envDefault:"10"`
	GithubRatePeriod time.Duration `env:"MLOPS_GITHUB_RATE_PERIOD" envDefault:"60s"`
	PollInterval     time.Duration `env:"MLOPS_POLL_INTERVAL" envDefault:"10s"`
	PollTimeout      time.Duration `env:"MLOPS_POLL_TIMEOUT" envDefault:"10m"`
	ProvisionSettle  time.Duration `env:"MLOPS_PROVISION_SETTLE" envDefault:"2s"`
	PortfolioSettle  time.Duration `env:"MLOPS_PORTFOLIO_SETTLE" envDefault:"5s"`
}

func (e BaseEnvironment) serviceName() string {
	return e.ServiceName
}

func (e BaseEnvironment) logLevel() zapcore.Level {
	return e.LogLevel
}

func (e BaseEnvironment) otelExporter() string {
	return e.OtelExporter
}

func (e BaseEnvironment) awsRegion() string {
	return e.AWSRegion
}

func (e BaseEnvironment) functionName() string {
	return e.FunctionName
}

func (e BaseEnvironment) lambdaRuntimeAPI() string {
	return e.LambdaRuntimeAPI
}

func (e BaseEnvironment) allowProjectDelete() bool {
	return e.AllowProjectDelete
}

func (e BaseEnvironment) githubTokenSecret() string {
	return e.GithubTokenSecret
}

func (e BaseEnvironment) githubTokenSecretPath() string {
	return e.GithubTokenSecretPath
}

func (e BaseEnvironment) githubRetryStatusCodes() string {
	return e.GithubRetryStatusCodes
}

func (e BaseEnvironment) githubRetryMaxAttempts() int {
	return e.GithubRetryMaxAttempts
}

func (e BaseEnvironment) githubRateLimit() int {
	return e.GithubRateLimit
}

func (e BaseEnvironment) githubRatePeriod() time.Duration {
	return e.GithubRatePeriod
}

func (e BaseEnvironment) pollInterval() time.Duration {
	return e.PollInterval
}

func (e BaseEnvironment) pollTimeout() time.Duration {
	return e.PollTimeout
}

func (e BaseEnvironment) provisionSettle() time.Duration {
	return e.ProvisionSettle
}

func (e BaseEnvironment) portfolioSettle() time.Duration {
	return e.PortfolioSettle
}

var _ Environment = BaseEnvironment{}

// ParseEnv parses environment variables into the given Environment type.
func ParseEnv[E Environment]() func() (E, error) {
	return func() (e E, err error) {
		if err := env.Parse(&e); err != nil {
			return e, errors.Wrap(err, "failed to parse environment")
		}
		return e, nil
	}
}

// DefaultRequiredRetryStatusCodes lists the statuses a retry expression must
// cover. GitHub signals throttling with 429 and transient outages with 500
// and 503; an expression that misses them turns recoverable blips into
// failed agent actions.
var DefaultRequiredRetryStatusCodes = []int{429, 500, 503}

// ValidateRetryStatusCodes checks that expr parses as an integer interval
// expression (e.g. "429,500-599") and covers every required status code.
// It runs at startup so a bad MLOPS_GITHUB_RETRY_STATUS_CODES value fails
// the deploy, not a live GitHub call.
func ValidateRetryStatusCodes(expr string, required ...int) error {
	parsed, err := intervalexpr.ParseExpression(expr)
	if err != nil {
		return errors.Wrapf(err, "failed to parse retry status codes %q", expr)
	}

	var missing []int
	for _, code := range required {
		if !parsed.Matches(code) {
			missing = append(missing, code)
		}
	}

	if len(missing) > 0 {
		return errors.Newf("retry status codes %q missing: %v (recommended value: %q)",
			expr, missing, "429,500-599")
	}

	return nil
}
