// Package session keeps the rendering session that is active while an express
// app is being executed or served.
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/elves/elvx/pkg/htm"
)

// ErrNoActiveSession is returned by [Require] when the context carries no
// session.
var ErrNoActiveSession = errors.New("no active session; HTML content can only be rendered while a session is active")

// Session is a rendering session. It records the outputs registered during
// the execution of an app so that they can be looked up by ID afterwards.
type Session struct {
	ID      string
	Created time.Time

	mu      sync.Mutex
	outputs map[string]any
	order   []string
}

// New creates a new session with a fresh ID.
func New() *Session {
	now := time.Now()
	return &Session{
		ID:      ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Created: now,
		outputs: make(map[string]any),
	}
}

// RenderHTML renders an HTML-capable value to a string. Other values are
// returned as their text, escaped.
func (s *Session) RenderHTML(v any) string {
	if n, ok := htm.AsNode(v); ok {
		return htm.Render(n)
	}
	return htm.Render(htm.Child(v))
}

// SetOutput registers the value of an output. Registering an ID again
// replaces the value but keeps its original position.
func (s *Session) SetOutput(id string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.outputs[id]; !ok {
		s.order = append(s.order, id)
	}
	s.outputs[id] = v
}

// Output returns the value of an output.
func (s *Session) Output(id string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.outputs[id]
	return v, ok
}

// OutputIDs returns the IDs of all registered outputs, in registration order.
func (s *Session) OutputIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

type ctxKey struct{}

// NewContext returns a context carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session carried by ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// Require is like [FromContext], but returns [ErrNoActiveSession] when there
// is no session.
func Require(ctx context.Context) (*Session, error) {
	if s, ok := FromContext(ctx); ok {
		return s, nil
	}
	return nil, ErrNoActiveSession
}
