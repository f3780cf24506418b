package mlopstest

import "testing"

// Env provides a chainable builder for setting [mlops.BaseEnvironment] env
// vars via t.Setenv. Create one with [SetBaseEnv].
type Env struct {
	t testing.TB
}

// SetBaseEnv sets every [mlops.BaseEnvironment] env var to fast test
// defaults. Settle waits are zeroed and polling is shrunk so handlers that
// wait on AWS resources finish within a test run. The Lambda runtime API
// stays unset, which keeps the app from entering the invocation loop.
//
// Defaults:
//   - MLOPS_SERVICE_NAME: "test"
//   - MLOPS_LOG_LEVEL: "debug"
//   - MLOPS_TRACING_EXPORTER: "stdout"
//   - AWS_REGION: "us-east-1"
//   - MLOPS_POLL_INTERVAL: "10ms"
//   - MLOPS_POLL_TIMEOUT: "500ms"
//   - MLOPS_PROVISION_SETTLE: "0s"
//   - MLOPS_PORTFOLIO_SETTLE: "0s"
//   - AWS_ACCESS_KEY_ID: "test"
//   - AWS_SECRET_ACCESS_KEY: "test"
//
// Use the returned [Env] to override individual values:
//
//	mlopstest.SetBaseEnv(t).AWSRegion("eu-west-1").AllowProjectDelete()
func SetBaseEnv(t testing.TB) *Env {
	t.Helper()
	t.Setenv("MLOPS_SERVICE_NAME", "test")
	t.Setenv("MLOPS_LOG_LEVEL", "debug")
	t.Setenv("MLOPS_TRACING_EXPORTER", "stdout")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("MLOPS_POLL_INTERVAL", "10ms")
	t.Setenv("MLOPS_POLL_TIMEOUT", "500ms")
	t.Setenv("MLOPS_PROVISION_SETTLE", "0s")
	t.Setenv("MLOPS_PORTFOLIO_SETTLE", "0s")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	return &Env{t: t}
}

// ServiceName overrides MLOPS_SERVICE_NAME.
func (e *Env) ServiceName(name string) *Env {
	e.t.Helper()
	e.t.Setenv("MLOPS_SERVICE_NAME", name)
	return e
}

// AWSRegion overrides AWS_REGION.
func (e *Env) AWSRegion(region string) *Env {
	e.t.Helper()
	e.t.Setenv("AWS_REGION", region)
	return e
}

// AllowProjectDelete enables the project delete action.
func (e *Env) AllowProjectDelete() *Env {
	e.t.Helper()
	e.t.Setenv("MLOPS_ALLOW_PROJECT_DELETE", "true")
	return e
}

// GitHubTokenSecret overrides MLOPS_GITHUB_TOKEN_SECRET.
func (e *Env) GitHubTokenSecret(secretID string) *Env {
	e.t.Helper()
	e.t.Setenv("MLOPS_GITHUB_TOKEN_SECRET", secretID)
	return e
}

// PollInterval overrides MLOPS_POLL_INTERVAL.
func (e *Env) PollInterval(d string) *Env {
	e.t.Helper()
	e.t.Setenv("MLOPS_POLL_INTERVAL", d)
	return e
}

// PollTimeout overrides MLOPS_POLL_TIMEOUT.
func (e *Env) PollTimeout(d string) *Env {
	e.t.Helper()
	e.t.Setenv("MLOPS_POLL_TIMEOUT", d)
	return e
}
