// Package auth wraps the external identity provider behind a small gate: a
// session-change subscription and a sign-out call. Provider failures never
// surface as errors to subscribers; they surface as "no session".
package auth

import (
	"context"
	"sync"
)

// Session is the opaque identity the provider vouches for.
type Session struct {
	UID    string
	Name   string
	Email  string
	Avatar string
}

// SessionHandler receives the current session on every change. A nil session
// means signed out.
type SessionHandler func(*Session)

// CancelFunc releases a session subscription.
type CancelFunc func()

// Provider is the identity gate consumed by the sync engine.
type Provider interface {
	// OnSessionChange registers h and invokes it immediately with the
	// current session state, then again on every change.
	OnSessionChange(h SessionHandler) CancelFunc

	// SignOut terminates the current session. Subscribers observe the
	// sign-out through their handlers.
	SignOut(ctx context.Context) error
}

// Static is a Provider with an in-process session, used for local mode and
// tests. It is safe for concurrent use.
type Static struct {
	mu       sync.Mutex
	session  *Session
	handlers map[int]SessionHandler
	nextID   int
}

// NewStatic creates a provider holding the given session; nil starts signed
// out.
func NewStatic(session *Session) *Static {
	return &Static{
		session:  session,
		handlers: make(map[int]SessionHandler),
	}
}

// OnSessionChange implements Provider.
func (p *Static) OnSessionChange(h SessionHandler) CancelFunc {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = h
	current := p.session
	p.mu.Unlock()

	h(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.handlers, id)
			p.mu.Unlock()
		})
	}
}

// SignOut implements Provider.
func (p *Static) SignOut(ctx context.Context) error {
	p.SetSession(nil)
	return nil
}

// SetSession replaces the current session and notifies every subscriber.
func (p *Static) SetSession(session *Session) {
	p.mu.Lock()
	p.session = session
	handlers := make([]SessionHandler, 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(session)
	}
}

// Ensure Static implements Provider.
var _ Provider = (*Static)(nil)
