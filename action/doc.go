// Package action provides routing and response handling for Amazon Bedrock
// agent action group invocations.
//
// # Overview
//
// A Bedrock agent calls an action group Lambda with a JSON event that names
// an api path and carries parameters in up to three places. This package
// models that event, extracts the parameters with a single documented
// precedence, dispatches on the api path over an exact-match table, and
// renders every outcome into the response envelope the agent expects. Two
// properties hold for every invocation:
//
//   - The runtime always receives an envelope, never an error. Panics and
//     unhandled errors become a 500 envelope carrying only a correlation id.
//   - Handlers return errors instead of rendering failures inline, so error
//     mapping can be centralized in middleware.
//
// A minimal example:
//
//	mux := action.NewMux()
//	mux.HandleFunc("/describe-thing", func(ctx context.Context, w *action.ResponseWriter, ev action.Event, params action.Params) error {
//	    name := params.Get("thing_name")
//	    if name == "" {
//	        return action.NewError(action.CodeBadRequest, errors.New("missing required parameter: thing_name"))
//	    }
//	    w.SetBody(map[string]string{"thing_name": name, "status": "Ready"})
//	    return nil
//	})
//
//	env := mux.Dispatch(ctx, ev)
//
// # Handler Signature
//
// Leaf handlers receive the extracted [Params] next to the raw [Event]:
//
//	func(ctx context.Context, w *action.ResponseWriter, ev action.Event, params action.Params) error
//
// Middleware runs before parameter extraction and therefore uses the
// [BareHandler] signature, which lacks the params argument.
//
// # Buffered Response
//
// Handlers write their status and body into a [ResponseWriter]. Nothing is
// rendered until the handler chain returns, so middleware can call
// [ResponseWriter.Reset] and formulate a completely new response, for
// example when mapping an error.
//
// # Error Handling
//
// When the handler chain returns an error the response is reset and replaced
// by a 500 envelope whose body carries a correlation id; the full error is
// handed to the [Logger] together with that id so operators can find it.
// Errors created with [NewError] carry a [Code] that middleware can read via
// [CodeOf] (or [AsError]) to render a more specific response before the
// last-resort 500 kicks in. [NewConflictError] additionally carries
// alternative names for the caller to retry with.
//
// # Dispatch
//
// [Mux.Handle] registers a handler per api path and panics on duplicates.
// [Mux.Use] registers middleware and must be called before the first Handle.
// Dispatching an unknown path renders a 400 envelope that lists every
// registered path, so a mis-prompted agent can correct itself.
//
// # Envelope
//
// The envelope format is fixed by the Bedrock agent runtime: a message
// version, the echoed action coordinates, the status code and the handler
// body serialized to a JSON string under the "application/json" content key.
// [NewEnvelope] renders it and enforces an optional payload size limit;
// oversized responses are replaced by a 500 envelope with a correlation id
// because Lambda would reject them anyway.
package action
