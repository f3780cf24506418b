package action

import (
	"log"
	"sync/atomic"
	"testing"
)

// Logger can be implemented to get informed about important states. Both
// methods receive the correlation id that was rendered into the response, so
// operators can find the full error from an agent transcript.
type Logger interface {
	LogUnhandledServeError(errorID string, err error)
	LogEnvelopeRenderError(errorID string, err error)
}

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogUnhandledServeError(errorID string, err error) {
	l.Logger.Printf("action: unhandled serve error (error_id=%s): %s", errorID, err)
}

func (l stdLogger) LogEnvelopeRenderError(errorID string, err error) {
	l.Logger.Printf("action: error while rendering envelope (error_id=%s): %s", errorID, err)
}

func NewStdLogger(l *log.Logger) Logger {
	return stdLogger{l}
}

type TestLogger struct {
	tb testing.TB

	NumLogUnhandledServeError int64
	NumLogEnvelopeRenderError int64

	LastErrorID string
}

func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogUnhandledServeError(errorID string, err error) {
	atomic.AddInt64(&l.NumLogUnhandledServeError, 1)
	l.LastErrorID = errorID
	l.tb.Logf("action: unhandled serve error (error_id=%s): %s", errorID, err)
}

func (l *TestLogger) LogEnvelopeRenderError(errorID string, err error) {
	atomic.AddInt64(&l.NumLogEnvelopeRenderError, 1)
	l.LastErrorID = errorID
	l.tb.Logf("action: error while rendering envelope (error_id=%s): %s", errorID, err)
}

var _ Logger = &TestLogger{}
