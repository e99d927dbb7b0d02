// Package token evaluates the freshness of a bearer access token from its
// embedded expiry claim.
//
// # Design
//
// The client holds no verification key, so the token is decoded without
// signature verification — the evaluator only needs the self-contained
// expiry deadline, and the server re-verifies every token anyway. A token
// that cannot be decoded, or that carries no expiry, evaluates to
// StateExpired, never StateValid: fail closed.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls. Evaluate is a pure function of the
//     token string and the clock.
//   - Treat a malformed token as valid.
//   - Import authflow or any sibling package.
package token
