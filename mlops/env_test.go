package mlops_test

import (
	"testing"
	"time"

	"github.com/aws-samples/sample-mlops-agent-for-bedrock/mlops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseEnv(t *testing.T) {
	t.Setenv("MLOPS_SERVICE_NAME", "mlops-agent-test")
	t.Setenv("MLOPS_LOG_LEVEL", "warn")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("MLOPS_ALLOW_PROJECT_DELETE", "true")
	t.Setenv("MLOPS_GITHUB_TOKEN_SECRET", "mlops/github")
	t.Setenv("MLOPS_POLL_INTERVAL", "250ms")
	t.Setenv("MLOPS_POLL_TIMEOUT", "3s")

	env, err := mlops.ParseEnv[mlops.BaseEnvironment]()()
	require.NoError(t, err)

	assert.Equal(t, "mlops-agent-test", env.ServiceName)
	assert.Equal(t, zapcore.WarnLevel, env.LogLevel)
	assert.Equal(t, "eu-west-1", env.AWSRegion)
	assert.True(t, env.AllowProjectDelete)
	assert.Equal(t, "mlops/github", env.GithubTokenSecret)
	assert.Equal(t, 250*time.Millisecond, env.PollInterval)
	assert.Equal(t, 3*time.Second, env.PollTimeout)

	// Values left unset keep their documented defaults.
	assert.Equal(t, "token", env.GithubTokenSecretPath)
	assert.Equal(t, "429,500-599", env.GithubRetryStatusCodes)
	assert.Equal(t, 3, env.GithubRetryMaxAttempts)
}

func TestParseEnvRejectsBadLevel(t *testing.T) {
	t.Setenv("MLOPS_LOG_LEVEL", "shouting")

	_, err := mlops.ParseEnv[mlops.BaseEnvironment]()()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse environment")
}

func TestValidateRetryStatusCodes(t *testing.T) {
	t.Run("valid single codes", func(t *testing.T) {
		err := mlops.ValidateRetryStatusCodes("429,500,503", 429, 500, 503)
		require.NoError(t, err)
	})

	t.Run("valid range covering all required", func(t *testing.T) {
		err := mlops.ValidateRetryStatusCodes("429,500-599", 429, 500, 503)
		require.NoError(t, err)
	})

	t.Run("valid with extra codes", func(t *testing.T) {
		err := mlops.ValidateRetryStatusCodes("408,429,500-599", 429, 500, 503)
		require.NoError(t, err)
	})

	t.Run("missing 429", func(t *testing.T) {
		err := mlops.ValidateRetryStatusCodes("500-599", 429, 500, 503)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing: [429]")
		assert.Contains(t, err.Error(), "recommended value: \"429,500-599\"")
	})

	t.Run("missing 503", func(t *testing.T) {
		err := mlops.ValidateRetryStatusCodes("429,500-502", 429, 500, 503)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing: [503]")
	})

	t.Run("missing several", func(t *testing.T) {
		err := mlops.ValidateRetryStatusCodes("500-502", 429, 500, 503)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("empty string fails parsing", func(t *testing.T) {
		err := mlops.ValidateRetryStatusCodes("", 429)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse")
	})

	t.Run("invalid format fails parsing", func(t *testing.T) {
		err := mlops.ValidateRetryStatusCodes("not-a-number", 429)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse")
	})

	t.Run("no required codes always passes", func(t *testing.T) {
		err := mlops.ValidateRetryStatusCodes("500")
		require.NoError(t, err)
	})

	t.Run("open-ended range", func(t *testing.T) {
		err := mlops.ValidateRetryStatusCodes("429,500-", 429, 500, 503, 599)
		require.NoError(t, err)
	})

	t.Run("default configuration", func(t *testing.T) {
		err := mlops.ValidateRetryStatusCodes("429,500-599", mlops.DefaultRequiredRetryStatusCodes...)
		require.NoError(t, err)
	})
}

func TestDefaultRequiredRetryStatusCodes(t *testing.T) {
	assert.Contains(t, mlops.DefaultRequiredRetryStatusCodes, 429)
	assert.Contains(t, mlops.DefaultRequiredRetryStatusCodes, 500)
	assert.Contains(t, mlops.DefaultRequiredRetryStatusCodes, 503)
	assert.Len(t, mlops.DefaultRequiredRetryStatusCodes, 3)
}
