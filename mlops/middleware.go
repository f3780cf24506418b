package mlops

import (
	"context"
	"strings"

	"github.com/aws-samples/sample-mlops-agent-for-bedrock/action"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// withInvocationLog logs every invocation with its sanitized parameters, and
// the rendered status once the handler is done.
func withInvocationLog() action.Middleware {
	return func(next action.BareHandler) action.BareHandler {
		return action.BareHandlerFunc(func(ctx context.Context, w *action.ResponseWriter, ev action.Event) error {
			logs := Log(ctx)
			logs.Info("handling agent action",
				zap.String("action_group", ev.ActionGroup),
				zap.String("api_path", ev.APIPath),
				zap.String("http_method", ev.HTTPMethod),
				zap.String("session_id", ev.SessionID),
				zap.Any("parameters", sanitizeParams(action.Extract(ev))))

			err := next.HandleBareAction(ctx, w, ev)
			if err == nil {
				logs.Info("agent action completed", zap.Int("status_code", w.Status()))
			}

			return err
		})
	}
}

// errorBoundary renders coded errors into agent-facing responses. Their
// messages are operator-authored and safe to relay verbatim; anything
// uncoded keeps flowing as an error so the outer boundary replaces it with
// a generic body and a correlation id.
func errorBoundary() action.Middleware {
	return func(next action.BareHandler) action.BareHandler {
		return action.BareHandlerFunc(func(ctx context.Context, w *action.ResponseWriter, ev action.Event) error {
			err := next.HandleBareAction(ctx, w, ev)
			if err == nil {
				return nil
			}

			aerr, ok := action.AsError(err)
			if !ok {
				return err
			}

			Log(ctx).Info("agent action failed",
				zap.Int("status_code", int(aerr.Code())),
				zap.String("error", aerr.Message()))

			w.Reset()
			w.SetStatus(int(aerr.Code()))

			body := map[string]any{"error": aerr.Message()}
			if suggestions := aerr.Suggestions(); len(suggestions) > 0 {
				body["suggestions"] = suggestions
			}
			w.SetBody(body)

			return nil
		})
	}
}

// sensitiveKeywords mark parameter names whose values never reach a log
// line. Matching is by substring, so connection_arn and github_token are
// both covered.
var sensitiveKeywords = []string{"token", "arn", "password", "secret", "key"}

// sanitizeParams replaces values of sensitive-looking parameters before
// logging.
func sanitizeParams(params action.Params) map[string]string {
	out := make(map[string]string, len(params))
	for name, value := range params {
		if isSensitiveParam(name) {
			out[name] = "***REDACTED***"
			continue
		}
		out[name] = value
	}

	return out
}

func isSensitiveParam(name string) bool {
	lower := strings.ToLower(name)
	return lo.SomeBy(sensitiveKeywords, func(keyword string) bool {
		return strings.Contains(lower, keyword)
	})
}
