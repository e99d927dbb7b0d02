// Package authflow provides an authenticated HTTP client with single-flight
// credential refresh: bearer attachment, expiry lookahead, exactly-once
// token rotation under concurrency, and bounded retry-after-refresh.
//
// The package is designed for concurrent client workloads: Client methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authflow is the public surface. It exposes [Client], [Builder], [Config],
// and value types (MetricsSnapshot, AuditEvent, etc.). All internal
// coordination — the refresh state machine and waiter fan-out — lives under
// internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, coordinator internals, or wire-format details in
//     its public API.
//   - Perform I/O outside of Client methods (construction via Builder is
//     allocation-only until Build).
//   - Issue more than one refresh network call per settlement, no matter how
//     many callers are queued.
//
// # Performance contract
//
// Transport attach is the hot path. It must cost one store read and one
// header write per request when the credential is healthy. Refresh is
// allowed one network round-trip per settlement; queued callers share it.
package authflow
