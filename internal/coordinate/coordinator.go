// Package coordinate implements single-flight refresh coordination: at most
// one refresh network call is in flight at any time, concurrent callers
// queue behind it, and every queued caller observes the same settlement.
package coordinate

import (
	"context"
	"errors"
	"sync"
)

// ErrNoRefreshToken is returned when the store holds nothing to refresh with.
var ErrNoRefreshToken = errors.New("no refresh token available")

// Deps captures coordinator dependencies without importing the root package.
type Deps struct {
	// ReadRefreshToken returns the current refresh token, or "" when the
	// session holds none.
	ReadRefreshToken func(ctx context.Context) (string, error)

	// Refresh performs exactly one refresh network call and returns the
	// rotated pair.
	Refresh func(ctx context.Context, refreshToken string) (access, refresh string, err error)

	// StoreCredential atomically writes the rotated pair. It runs before
	// any waiter observes the new access token.
	StoreCredential func(ctx context.Context, access, refresh string) error

	// Invalidate clears the session after a failed refresh. Called at
	// most once per settlement, regardless of queue depth.
	Invalidate func(ctx context.Context)

	// OnShared reports how many waiters shared a settled refresh,
	// leader excluded. Optional.
	OnShared func(waiters int)

	// Warn logs non-fatal internal failures. Optional.
	Warn func(msg string)
}

type outcome struct {
	access string
	err    error

	// invalidate marks settlements that log the session out: a failed
	// refresh attempt, or an unauthenticated miss that may leave a
	// dangling half-pair behind. A transient store read error does not
	// invalidate.
	invalidate bool
}

// Coordinator is the refresh state machine. Zero state is idle; it cycles
// between idle and refreshing for the process lifetime.
type Coordinator struct {
	mu         sync.Mutex
	refreshing bool
	waiters    []chan outcome
	deps       Deps
}

// New creates a Coordinator with the given dependencies.
func New(deps Deps) *Coordinator {
	return &Coordinator{deps: deps}
}

// Refreshing reports whether a refresh call is currently in flight.
func (c *Coordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// Obtain returns a guaranteed-fresh access token. The first caller to find
// the coordinator idle becomes the leader and drives the refresh; callers
// arriving while a refresh is in flight are enqueued and share the leader's
// outcome. An enqueued caller whose context expires stops waiting, but its
// settlement is still delivered into its buffered channel — the coordinator
// does not support cancellation of an in-flight refresh.
func (c *Coordinator) Obtain(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		ch := make(chan outcome, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()

		select {
		case out := <-ch:
			return out.access, out.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	out := c.lead(ctx)
	return out.access, out.err
}

// lead performs the single refresh call and fans the settlement out to every
// waiter enqueued while it ran. The deferred settle returns the state to
// idle unconditionally, even if a dependency panics.
func (c *Coordinator) lead(ctx context.Context) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: errors.New("refresh dependency panicked"), invalidate: true}
			if c.deps.Warn != nil {
				c.deps.Warn("refresh dependency panicked")
			}
		}
		c.settle(ctx, out)
	}()

	refreshToken, err := c.deps.ReadRefreshToken(ctx)
	if err != nil {
		return outcome{err: err}
	}
	if refreshToken == "" {
		// fail immediately, no network call, no retry; the logout still
		// runs so a dangling access token cannot outlive its pair
		return outcome{err: ErrNoRefreshToken, invalidate: true}
	}

	access, refresh, err := c.deps.Refresh(ctx, refreshToken)
	if err != nil {
		return outcome{err: err, invalidate: true}
	}

	if err := c.deps.StoreCredential(ctx, access, refresh); err != nil {
		// the rotated pair is lost; the session cannot recover
		return outcome{err: err, invalidate: true}
	}

	return outcome{access: access}
}

// settle resolves every queued waiter with the leader's outcome, exactly
// once each. A failed refresh invalidates the session once, before any
// waiter is rejected.
func (c *Coordinator) settle(ctx context.Context, out outcome) {
	if out.invalidate && c.deps.Invalidate != nil {
		c.deps.Invalidate(ctx)
	}

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	if c.deps.OnShared != nil && len(waiters) > 0 {
		c.deps.OnShared(len(waiters))
	}
	for _, ch := range waiters {
		// buffered, never blocks; abandoned waiters still receive
		// their settlement
		ch <- out
	}
}
