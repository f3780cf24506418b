package action

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is an error code that mirrors the http status codes reported inside
// the agent envelope. It can be used to create errors to pass across
// middleware layers to handle errors structurally.
type Code int

const (
	CodeUnknown             Code = 0
	CodeBadRequest          Code = http.StatusBadRequest          // RFC 9110, 15.5.1
	CodeUnauthorized        Code = http.StatusUnauthorized        // RFC 9110, 15.5.2
	CodeForbidden           Code = http.StatusForbidden           // RFC 9110, 15.5.4
	CodeNotFound            Code = http.StatusNotFound            // RFC 9110, 15.5.5
	CodeConflict            Code = http.StatusConflict            // RFC 9110, 15.5.10
	CodeTooManyRequests     Code = http.StatusTooManyRequests     // RFC 6585, 4
	CodeInternalServerError Code = http.StatusInternalServerError // RFC 9110, 15.6.1
	CodeNotImplemented      Code = http.StatusNotImplemented      // RFC 9110, 15.6.2
	CodeBadGateway          Code = http.StatusBadGateway          // RFC 9110, 15.6.3
	CodeServiceUnavailable  Code = http.StatusServiceUnavailable  // RFC 9110, 15.6.4
	CodeGatewayTimeout      Code = http.StatusGatewayTimeout      // RFC 9110, 15.6.5
)

// Error describes a failed action with an agent-safe message. Messages of
// coded errors are considered operator-authored and may be relayed to the
// agent verbatim; anything else must be replaced at the boundary.
type Error struct {
	code        Code
	err         error
	suggestions []string
}

// NewError inits a new error given the error code.
func NewError(c Code, underlying error) *Error {
	return &Error{code: c, err: underlying}
}

// NewConflictError inits a conflict error that carries alternative names the
// caller may retry with. The suggestions end up in the response body; the
// action itself is never retried under a different name automatically.
func NewConflictError(underlying error, suggestions ...string) *Error {
	return &Error{code: CodeConflict, err: underlying, suggestions: suggestions}
}

func (e *Error) Code() Code { return e.code }

// Suggestions returns the alternative names of a conflict error, nil for
// other errors.
func (e *Error) Suggestions() []string { return e.suggestions }

// Message returns the bare underlying message without the status prefix,
// suitable for rendering into a response body.
func (e *Error) Message() string { return e.err.Error() }

func (e *Error) Error() string {
	status := http.StatusText(int(e.Code()))
	if status == "" {
		status = "Unknown"
	}

	return fmt.Sprintf("%s: %s", status, e.err.Error())
}

func (e *Error) Unwrap() error { return e.err }

// CodeOf returns the error's status code if it is or wraps an [*Error] and
// [CodeUnknown] otherwise.
func CodeOf(err error) Code {
	if aerr, ok := AsError(err); ok {
		return aerr.Code()
	}

	return CodeUnknown
}

// SuggestionsOf returns the suggestions if the error is or wraps a conflict
// [*Error], nil otherwise.
func SuggestionsOf(err error) []string {
	if aerr, ok := AsError(err); ok {
		return aerr.Suggestions()
	}

	return nil
}

// AsError uses errors.As to unwrap any error and look for an [*Error].
func AsError(err error) (*Error, bool) {
	var aerr *Error
	ok := errors.As(err, &aerr)

	return aerr, ok
}

// InternalErrorBody is the body rendered for failures that must not leak
// detail to the agent. The id correlates the response with the server-side
// log of the actual error.
func InternalErrorBody(errorID string) map[string]string {
	return map[string]string{
		"error":    "An error occurred processing your request",
		"error_id": errorID,
		"message":  "Please contact support with the error ID",
	}
}
