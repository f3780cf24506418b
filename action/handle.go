package action

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Handler handles a single dispatched agent action with its extracted
// parameters. Implementations report failures by returning an error instead
// of rendering one; the boundary decides what the agent gets to see.
type Handler interface {
	HandleAction(ctx context.Context, w *ResponseWriter, ev Event, params Params) error
}

// HandlerFunc allows casting a function to implement [Handler].
type HandlerFunc func(context.Context, *ResponseWriter, Event, Params) error

// HandleAction implements the [Handler] interface.
func (f HandlerFunc) HandleAction(ctx context.Context, w *ResponseWriter, ev Event, params Params) error {
	return f(ctx, w, ev, params)
}

// BareHandler describes how middleware serves agent actions. Middleware runs
// before parameter extraction, so the signature for handling middleware
// [BareHandler] is different from the signature of "leaf" handlers:
// [Handler].
type BareHandler interface {
	HandleBareAction(ctx context.Context, w *ResponseWriter, ev Event) error
}

// BareHandlerFunc allows casting a function to an implementation of
// [BareHandler].
type BareHandlerFunc func(context.Context, *ResponseWriter, Event) error

// HandleBareAction implements the [BareHandler] interface.
func (f BareHandlerFunc) HandleBareAction(ctx context.Context, w *ResponseWriter, ev Event) error {
	return f(ctx, w, ev)
}

// ToBare converts a leaf handler 'h' into a bare handler by extracting the
// event's parameters.
func ToBare(h Handler) BareHandler {
	return BareHandlerFunc(func(ctx context.Context, w *ResponseWriter, ev Event) error {
		return h.HandleAction(ctx, w, ev, Extract(ev))
	})
}

// InvokeFunc is the fully wrapped form the Lambda runtime calls. It always
// produces an envelope, never an error: an agent invocation must get a
// response it can relay no matter what happened inside.
type InvokeFunc func(ctx context.Context, ev Event) Envelope

// ToInvoke converts a bare handler into an [InvokeFunc]. The implementation
// recovers panics and, when the handler chain returns an error that no
// middleware turned into a response, resets the buffered response and
// replaces it with a 500 carrying only a correlation id. The full error is
// logged under that id.
func ToInvoke(h BareHandler, maxPayload int, logs Logger) InvokeFunc {
	return func(ctx context.Context, ev Event) Envelope {
		w := NewResponseWriter()

		if err := serveRecovered(ctx, h, w, ev); err != nil {
			errorID := uuid.NewString()
			logs.LogUnhandledServeError(errorID, err)
			w.Reset() // discard whatever the handler wrote

			w.SetStatus(int(CodeInternalServerError))
			w.SetBody(InternalErrorBody(errorID))
		}

		env, err := NewEnvelope(ev, w, maxPayload)
		if err != nil {
			errorID := uuid.NewString()
			logs.LogEnvelopeRenderError(errorID, err)

			return internalErrorEnvelope(ev, errorID)
		}

		return env
	}
}

// serveRecovered calls the handler while converting panics into errors so a
// single invocation can never take down the runtime.
func serveRecovered(ctx context.Context, h BareHandler, w *ResponseWriter, ev Event) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("panic while serving action: %v", v)
		}
	}()

	return h.HandleBareAction(ctx, w, ev)
}
