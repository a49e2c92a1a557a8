// Package session supplies the current owner identity to the collection core.
//
// A Source answers who is signed in right now and announces sign-in and
// sign-out. Authentication itself happens elsewhere.
package session

import (
	"sync"
)

// Source is the session context collaborator.
type Source interface {
	// Current returns the signed-in owner id, or ok=false when nobody is.
	Current() (owner string, ok bool)

	// Subscribe registers fn to be called after every change. The returned
	// function removes the subscription.
	Subscribe(fn func(owner string, ok bool)) (cancel func())
}

// Static is a Source that never changes. An empty Static means signed out.
type Static string

// Current returns the fixed owner.
func (s Static) Current() (string, bool) {
	return string(s), s != ""
}

// Subscribe never fires.
func (s Static) Subscribe(func(string, bool)) func() {
	return func() {}
}

// Manual is a Source driven by explicit SignIn and SignOut calls.
//
// Thread-safety: Manual is safe for concurrent use. Subscribers run on the
// caller's goroutine, outside the lock.
type Manual struct {
	mu     sync.Mutex
	owner  string
	active bool
	nextID int
	subs   map[int]func(string, bool)
}

// NewManual returns a signed-out Manual source.
func NewManual() *Manual {
	return &Manual{subs: make(map[int]func(string, bool))}
}

// Current returns the signed-in owner.
func (m *Manual) Current() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner, m.active
}

// Subscribe registers fn for change notifications.
func (m *Manual) Subscribe(fn func(string, bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// SignIn makes owner the current session. An empty owner signs out.
func (m *Manual) SignIn(owner string) {
	m.set(owner, owner != "")
}

// SignOut clears the current session.
func (m *Manual) SignOut() {
	m.set("", false)
}

func (m *Manual) set(owner string, active bool) {
	m.mu.Lock()
	m.owner, m.active = owner, active
	subs := make([]func(string, bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(owner, active)
	}
}
