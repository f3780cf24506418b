// Package mlopstest provides test helpers for mlops applications.
//
// It constructs the identical DI graph as [mlops.NewApp] but uses
// [fxtest.App], which fails the test immediately on wiring errors. Without a
// Lambda runtime API configured the app starts without entering the
// invocation loop, so tests can start and stop it like any other fixture.
//
// Example:
//
//	mlopstest.SetBaseEnv(t)
//	app := mlopstest.New[mlops.BaseEnvironment](t, mlops.Register)
//	app.RequireStart()
//	t.Cleanup(app.RequireStop)
package mlopstest

import (
	"testing"

	"github.com/aws-samples/sample-mlops-agent-for-bedrock/mlops"
	"go.uber.org/fx/fxtest"
)

// App embeds *fxtest.App for testing mlops applications.
type App struct {
	*fxtest.App
}

// New creates a test app with the same DI graph as [mlops.NewApp].
func New[E mlops.Environment](t testing.TB, routing any, opts ...mlops.Option) *App {
	return &App{App: fxtest.New(t, mlops.FxOptions[E](routing, opts...)...)}
}
