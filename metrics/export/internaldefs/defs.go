package internaldefs

import (
	"github.com/fundn3xus/sessionauth"
)

// CounterDef names one Manager counter for export.
type CounterDef struct {
	ID   sessionauth.MetricID
	Name string
	Help string
}

// HistogramDef names one Manager histogram for export.
type HistogramDef struct {
	ID   sessionauth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "sessionauth_audit_dropped_total"

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: sessionauth.MetricSessionIssued, Name: "sessionauth_session_issued_total", Help: "Sessions created with a token pair."},
	{ID: sessionauth.MetricIssueFailure, Name: "sessionauth_issue_failure_total", Help: "Issue calls that returned an error."},
	{ID: sessionauth.MetricVerifySuccess, Name: "sessionauth_verify_success_total", Help: "Tokens that passed verification."},
	{ID: sessionauth.MetricVerifyInvalidToken, Name: "sessionauth_verify_invalid_token_total", Help: "Tokens rejected as malformed, forged or mis-addressed."},
	{ID: sessionauth.MetricVerifyExpired, Name: "sessionauth_verify_expired_total", Help: "Tokens rejected as expired."},
	{ID: sessionauth.MetricVerifySessionNotFound, Name: "sessionauth_verify_session_not_found_total", Help: "Valid tokens whose session no longer exists."},
	{ID: sessionauth.MetricRefreshSuccess, Name: "sessionauth_refresh_success_total", Help: "Access tokens minted from refresh tokens."},
	{ID: sessionauth.MetricRefreshFailure, Name: "sessionauth_refresh_failure_total", Help: "Refresh attempts that returned no token."},
	{ID: sessionauth.MetricRefreshWrongType, Name: "sessionauth_refresh_wrong_type_total", Help: "Refresh attempts presenting an access token."},
	{ID: sessionauth.MetricSessionInvalidated, Name: "sessionauth_session_invalidated_total", Help: "Sessions removed by logout."},
	{ID: sessionauth.MetricLogoutAll, Name: "sessionauth_logout_all_total", Help: "Invalidate-all-for-user operations."},
	{ID: sessionauth.MetricSessionsSwept, Name: "sessionauth_sessions_swept_total", Help: "Idle sessions removed by the sweep."},
	{ID: sessionauth.MetricSweepRuns, Name: "sessionauth_sweep_runs_total", Help: "Sweep executions."},
	{ID: sessionauth.MetricStoreError, Name: "sessionauth_store_error_total", Help: "Session store operations that failed."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: sessionauth.MetricVerifyLatency, Name: "sessionauth_verify_latency_seconds", Help: "Verify latency histogram."},
}

// HistogramBounds are the upper bounds of the Manager latency buckets in
// seconds, in bucket order.
var HistogramBounds = []string{
	"0.001",
	"0.002",
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = []string{
	"0_001",
	"0_002",
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"inf",
}

// NormalizeBuckets pads or truncates raw to exactly eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets converts per-bucket counts to the running totals used by
// Prometheus "le" buckets.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := range raw {
		running += raw[i]
		out[i] = running
	}
	return out
}
