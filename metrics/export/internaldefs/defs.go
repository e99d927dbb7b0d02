package internaldefs

import (
	authflow "github.com/ChesterZhangz/authflow"
)

// CounterDef defines a public type used by authflow APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by authflow APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the refresh client.
var CounterDefs = []CounterDef{
	{ID: authflow.MetricRefreshSuccess, Name: "authflow_refresh_success_total", Help: "Successful credential refresh settlements."},
	{ID: authflow.MetricRefreshFailure, Name: "authflow_refresh_failure_total", Help: "Failed credential refresh settlements."},
	{ID: authflow.MetricRefreshUnauthenticated, Name: "authflow_refresh_unauthenticated_total", Help: "Refresh attempts with no refresh token available."},
	{ID: authflow.MetricRefreshShared, Name: "authflow_refresh_shared_total", Help: "Waiters that shared an in-flight refresh instead of issuing their own."},
	{ID: authflow.MetricSessionInvalidated, Name: "authflow_session_invalidated_total", Help: "Session invalidations after a failed refresh."},
	{ID: authflow.MetricProactiveRefresh, Name: "authflow_proactive_refresh_total", Help: "Refreshes triggered by the expiry lookahead rather than a rejection."},
	{ID: authflow.MetricCredentialRejected, Name: "authflow_credential_rejected_total", Help: "Credential-rejected (401) responses observed by the transport."},
	{ID: authflow.MetricRetryAfterRefresh, Name: "authflow_retry_after_refresh_total", Help: "Requests replayed with a refreshed credential."},
	{ID: authflow.MetricRetryExhausted, Name: "authflow_retry_exhausted_total", Help: "Requests rejected again after the refresh-retry cap."},
}

// HistogramDefs is an exported constant or variable used by the refresh client.
var HistogramDefs = []HistogramDef{
	{ID: authflow.MetricRefreshLatency, Name: "authflow_refresh_latency_seconds", Help: "Refresh round-trip latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the refresh client.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the refresh client.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
