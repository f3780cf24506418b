package mlopstest

import (
	"context"
	"maps"
	"slices"

	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
)

// NewEvent builds an agent event carrying the given parameters, for driving
// handlers directly in tests. Parameters are added in sorted name order so
// events compare deterministically.
func NewEvent(apiPath string, params map[string]string) action.Event {
	ev := action.Event{
		MessageVersion: "1.0",
		ActionGroup:    "mlops-actions",
		APIPath:        apiPath,
		HTTPMethod:     "POST",
		SessionID:      "test-session",
	}
	for _, name := range slices.Sorted(maps.Keys(params)) {
		ev.Parameters = append(ev.Parameters, action.NewParameter(name, params[name]))
	}
	return ev
}

// CallHandler invokes a single action handler outside the middleware stack
// and returns the response writer for assertions along with the handler's
// error. The context must carry a logger; combine with [mlops.WithLogger]:
//
//	ctx := mlops.WithLogger(context.Background(), zaptest.NewLogger(t))
//	w, err := mlopstest.CallHandler(ctx, h.ListMLOpsTemplates, nil)
func CallHandler(ctx context.Context, handler action.HandlerFunc, params map[string]string) (*action.ResponseWriter, error) {
	ev := NewEvent("", params)
	w := action.NewResponseWriter()
	err := handler.HandleAction(ctx, w, ev, action.Extract(ev))
	return w, err
}
