package action

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"slices"
	"sort"
	"strings"
)

// Mux dispatches agent action invocations to handlers by exact api path,
// with buffered responses, error handling and middleware.
type Mux struct {
	logs        Logger
	maxPayload  int
	handlers    map[string]InvokeFunc
	paths       []string
	middlewares struct {
		captured bool
		buffered []Middleware
	}
}

// NewMux creates a new Mux with default settings.
func NewMux() *Mux {
	return NewMuxWith(-1, NewStdLogger(log.Default()))
}

// NewMuxWith creates a Mux with custom settings. A maxPayload larger than
// zero limits the marshaled envelope size.
func NewMuxWith(maxPayload int, logger Logger) *Mux {
	return &Mux{
		maxPayload: maxPayload,
		logs:       logger,
		handlers:   map[string]InvokeFunc{},
	}
}

// Use allows providing of middleware.
func (m *Mux) Use(mw ...Middleware) {
	m.ensureNoUseAfterHandle()
	m.middlewares.buffered = append(m.middlewares.buffered, mw...)
}

// HandleFunc registers a handler function for the given api path.
func (m *Mux) HandleFunc(path string, handler HandlerFunc) {
	m.Handle(path, handler)
}

// Handle registers a handler for the given api path. Registering the same
// path twice panics: the dispatch table is assembled once at startup and a
// duplicate is always a programming error.
func (m *Mux) Handle(path string, handler Handler) {
	m.middlewares.captured = true

	if _, exists := m.handlers[path]; exists {
		panic("action: path already registered: " + path)
	}

	m.handlers[path] = ToInvoke(
		Wrap(handler, m.middlewares.buffered...),
		m.maxPayload,
		m.logs,
	)

	m.paths = append(m.paths, path)
	sort.Strings(m.paths)
}

// Paths returns every registered api path in sorted order.
func (m *Mux) Paths() []string {
	return slices.Clone(m.paths)
}

// Dispatch routes the event to the handler registered for its api path and
// returns the rendered envelope. An unknown path reports a 400 that lists
// every registered path, so a mis-prompted agent can correct itself.
func (m *Mux) Dispatch(ctx context.Context, ev Event) Envelope {
	invoke, ok := m.handlers[ev.APIPath]
	if !ok {
		return m.unknownPath(ev)
	}

	return invoke(ctx, ev)
}

func (m *Mux) unknownPath(ev Event) Envelope {
	w := NewResponseWriter()
	w.SetStatus(http.StatusBadRequest)
	w.SetBody(map[string]string{
		"error": fmt.Sprintf("Unknown API path: %s. Available paths: %s",
			ev.APIPath, strings.Join(m.paths, ", ")),
	})

	env, err := NewEnvelope(ev, w, m.maxPayload)
	if err != nil {
		panic("action: render unknown path envelope: " + err.Error())
	}

	return env
}

func (m *Mux) ensureNoUseAfterHandle() {
	if m.middlewares.captured {
		panic("action: cannot call Use() after calling Handle")
	}
}
