package action

import (
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
)

// messageVersion is the only envelope version the Bedrock agent runtime
// speaks.
const messageVersion = "1.0"

// ResponseWriter collects a handler's response before it is rendered into
// the agent envelope. The values are buffered, which allows middleware to
// reset the writer and formulate a completely new response.
type ResponseWriter struct {
	status int
	body   any
}

// NewResponseWriter creates an empty response writer.
func NewResponseWriter() *ResponseWriter {
	return &ResponseWriter{}
}

// SetStatus sets the http status code reported inside the envelope.
func (w *ResponseWriter) SetStatus(code int) { w.status = code }

// Status returns the status code, defaulting to 200 when the handler never
// set one.
func (w *ResponseWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}

	return w.status
}

// SetBody sets the body value. It is serialized to a JSON string when the
// envelope is rendered.
func (w *ResponseWriter) SetBody(v any) { w.body = v }

// Body returns the body value as set by the handler, nil when unset.
func (w *ResponseWriter) Body() any { return w.body }

// Reset clears the status and body for a fresh response.
func (w *ResponseWriter) Reset() {
	w.status = 0
	w.body = nil
}

// Envelope is the wire format a Bedrock agent expects back from an action
// group Lambda.
type Envelope struct {
	MessageVersion string           `json:"messageVersion"`
	Response       EnvelopeResponse `json:"response"`
}

// EnvelopeResponse echoes the action coordinates of the invocation and wraps
// the serialized handler body.
type EnvelopeResponse struct {
	ActionGroup    string                     `json:"actionGroup"`
	APIPath        string                     `json:"apiPath"`
	HTTPMethod     string                     `json:"httpMethod"`
	HTTPStatusCode int                        `json:"httpStatusCode"`
	ResponseBody   map[string]EnvelopeContent `json:"responseBody"`
}

// EnvelopeContent holds the handler body serialized to a JSON string, as the
// agent runtime requires.
type EnvelopeContent struct {
	Body string `json:"body"`
}

// NewEnvelope renders the response writer into an envelope for the given
// event. A maxPayload larger than zero rejects envelopes whose marshaled
// size exceeds it, since Lambda would refuse to return them anyway.
func NewEnvelope(ev Event, w *ResponseWriter, maxPayload int) (Envelope, error) {
	body, err := json.Marshal(w.Body())
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal response body: %w", err)
	}

	env := Envelope{
		MessageVersion: messageVersion,
		Response: EnvelopeResponse{
			ActionGroup:    ev.ActionGroup,
			APIPath:        ev.APIPath,
			HTTPMethod:     ev.HTTPMethod,
			HTTPStatusCode: w.Status(),
			ResponseBody: map[string]EnvelopeContent{
				"application/json": {Body: string(body)},
			},
		},
	}

	if maxPayload > 0 {
		raw, err := json.Marshal(env)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal envelope: %w", err)
		}

		if len(raw) > maxPayload {
			return Envelope{}, fmt.Errorf("envelope of %d bytes exceeds the maximum payload of %d bytes", len(raw), maxPayload)
		}
	}

	return env, nil
}

// internalErrorEnvelope is the last resort when the handler's own response
// cannot be rendered. Its body is a small map of plain strings so rendering
// it cannot fail in turn.
func internalErrorEnvelope(ev Event, errorID string) Envelope {
	w := NewResponseWriter()
	w.SetStatus(http.StatusInternalServerError)
	w.SetBody(InternalErrorBody(errorID))

	env, err := NewEnvelope(ev, w, 0)
	if err != nil {
		panic("action: render internal error envelope: " + err.Error())
	}

	return env
}
