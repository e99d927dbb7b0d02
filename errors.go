package authflow

import "errors"

var (
	// ErrUnauthenticated is an exported constant or variable used by the refresh client.
	ErrUnauthenticated = errors.New("unauthenticated: no refresh token available")
	// ErrRefreshFailed is an exported constant or variable used by the refresh client.
	ErrRefreshFailed = errors.New("refresh failed")
	// ErrRetryExhausted is an exported constant or variable used by the refresh client.
	ErrRetryExhausted = errors.New("request rejected after credential refresh retry")
	// ErrStoreUnavailable is an exported constant or variable used by the refresh client.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrClientNotReady is an exported constant or variable used by the refresh client.
	ErrClientNotReady = errors.New("client not initialized")
	// ErrBuilderReused is an exported constant or variable used by the refresh client.
	ErrBuilderReused = errors.New("builder already used")
)
