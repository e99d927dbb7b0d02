package credstore

import (
	"context"
	"sync"
)

// Memory defines a public type used by authflow APIs.
//
// Memory instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Memory struct {
	mu        sync.Mutex
	cred      Credential
	listeners []func()
}

// NewMemory describes the newmemory operation and its observable behavior.
//
// NewMemory may return an error when input validation, dependency calls, or security checks fail.
// NewMemory does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMemory() *Memory {
	return &Memory{}
}

// Seed describes the seed operation and its observable behavior.
//
// Seed may return an error when input validation, dependency calls, or security checks fail.
// Seed does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Memory) Seed(cred Credential) *Memory {
	m.mu.Lock()
	m.cred = cred
	m.mu.Unlock()
	return m
}

// OnInvalidate describes the oninvalidate operation and its observable behavior.
//
// OnInvalidate may return an error when input validation, dependency calls, or security checks fail.
// OnInvalidate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Memory) OnInvalidate(fn func()) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Read describes the read operation and its observable behavior.
//
// Read may return an error when input validation, dependency calls, or security checks fail.
// Read does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Memory) Read(_ context.Context) (Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred, nil
}

// Write describes the write operation and its observable behavior.
//
// Write may return an error when input validation, dependency calls, or security checks fail.
// Write does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Memory) Write(_ context.Context, cred Credential) error {
	m.mu.Lock()
	m.cred = cred
	m.mu.Unlock()
	return nil
}

// Invalidate describes the invalidate operation and its observable behavior.
//
// Invalidate may return an error when input validation, dependency calls, or security checks fail.
// Invalidate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Memory) Invalidate(_ context.Context) error {
	m.mu.Lock()
	wasEmpty := m.cred.IsZero()
	m.cred = Credential{}
	listeners := m.listeners
	m.mu.Unlock()

	if wasEmpty {
		return nil
	}
	// listeners run outside the lock so a listener reading the store
	// cannot deadlock
	for _, fn := range listeners {
		fn()
	}
	return nil
}
