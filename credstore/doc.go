// Package credstore holds the process-wide credential pair used by the
// authflow client.
//
// # Design
//
// A Store owns exactly one Credential at a time. Writes replace the whole
// pair atomically with respect to readers; Invalidate clears the pair and
// signals the logged-out state exactly once per occurrence. The refresh
// coordinator is the only writer — every other component must treat the
// store as read-only.
//
// # Architecture boundaries
//
// This package owns credential storage and logout signalling. It never
// decodes tokens, never performs HTTP calls, and never decides whether a
// credential is stale — that is the token and authflow packages' job.
//
// # What this package must NOT do
//
//   - Import authflow or any sibling package.
//   - Retry or re-issue a refresh on its own.
//   - Hold two different access tokens visible to readers at once.
package credstore
