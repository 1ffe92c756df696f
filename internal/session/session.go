// Package session tracks the most recently notified authenticated identity.
//
// The identity provider is the single writer: it publishes Events on a
// channel and the Context applies them in order. Every other component only
// reads. Before the first event arrives the context reports "unauthenticated",
// never "unknown" — a protected action invoked in that window fails with
// ErrUnauthenticated rather than blocking.
package session

import (
	"errors"
	"sync"
)

// ErrUnauthenticated signals that an operation requiring an identity ran
// without one.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the authenticated principal as last reported by the identity
// provider.
type Identity struct {
	UserID int64
	Email  string
}

// Event is one authentication-state notification. A nil Identity means
// signed out.
type Event struct {
	Identity *Identity
}

// Context exposes the latest known identity to its consumers.
type Context struct {
	mu      sync.RWMutex
	current *Identity
}

// Watch starts consuming events and returns the context. The consuming
// goroutine is the sole write path; it exits when the channel closes.
func Watch(events <-chan Event) *Context {
	c := &Context{}
	go func() {
		for ev := range events {
			c.mu.Lock()
			if ev.Identity != nil {
				identity := *ev.Identity
				c.current = &identity
			} else {
				c.current = nil
			}
			c.mu.Unlock()
		}
	}()
	return c
}

// Current returns the latest identity, and false when there is none.
func (c *Context) Current() (Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return Identity{}, false
	}
	return *c.current, true
}

// Require returns the current identity or ErrUnauthenticated.
func (c *Context) Require() (Identity, error) {
	identity, ok := c.Current()
	if !ok {
		return Identity{}, ErrUnauthenticated
	}
	return identity, nil
}
