package credstore

import (
	"context"
	"errors"
)

// ErrStoreUnavailable is an exported constant or variable used by the credential store.
var ErrStoreUnavailable = errors.New("credential store unavailable")

// Credential defines a public type used by authflow APIs.
//
// Credential instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Credential struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// IsZero describes the iszero operation and its observable behavior.
//
// IsZero may return an error when input validation, dependency calls, or security checks fail.
// IsZero does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Credential) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Store defines a public type used by authflow APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store interface {
	// Read returns the current credential pair. A zero Credential with a
	// nil error means the session is logged out.
	Read(ctx context.Context) (Credential, error)

	// Write replaces the whole pair. The replacement is atomic: a
	// concurrent Read observes either the old pair or the new pair,
	// never a mix.
	Write(ctx context.Context, cred Credential) error

	// Invalidate clears the pair and signals the logged-out state to
	// registered listeners. Invalidating an already-empty store is a
	// no-op and does not signal again.
	Invalidate(ctx context.Context) error
}
