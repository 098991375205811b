package internaldefs

import (
	tokenfamily "github.com/stashbin/tokenfamily"
)

// CounterDef defines a public type used by tokenfamily APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   tokenfamily.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by tokenfamily APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   tokenfamily.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the rotation engine.
var CounterDefs = []CounterDef{
	{ID: tokenfamily.MetricIssueSuccess, Name: "tokenfamily_issue_success_total", Help: "Successful family issuances."},
	{ID: tokenfamily.MetricIssueFailure, Name: "tokenfamily_issue_failure_total", Help: "Failed family issuances."},
	{ID: tokenfamily.MetricRotateSuccess, Name: "tokenfamily_rotate_success_total", Help: "Successful rotations."},
	{ID: tokenfamily.MetricRotateInvalid, Name: "tokenfamily_rotate_invalid_total", Help: "Rotations rejected as invalid."},
	{ID: tokenfamily.MetricRotateExpired, Name: "tokenfamily_rotate_expired_total", Help: "Rotations rejected as expired."},
	{ID: tokenfamily.MetricRotateFailure, Name: "tokenfamily_rotate_failure_total", Help: "Rotations failed on backend errors."},
	{ID: tokenfamily.MetricReplayDetected, Name: "tokenfamily_replay_detected_total", Help: "Detected refresh token replays."},
	{ID: tokenfamily.MetricTokenRevoked, Name: "tokenfamily_token_revoked_total", Help: "Single-token revocations."},
	{ID: tokenfamily.MetricFamilyRevoked, Name: "tokenfamily_family_revoked_total", Help: "Family revocations."},
	{ID: tokenfamily.MetricUserRevoked, Name: "tokenfamily_user_revoked_total", Help: "User-wide revocations."},
}

// HistogramDefs is an exported constant or variable used by the rotation engine.
var HistogramDefs = []HistogramDef{
	{ID: tokenfamily.MetricRotateLatency, Name: "tokenfamily_rotate_latency_seconds", Help: "Rotate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the rotation engine.
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

// HistogramBoundSuffix is an exported constant or variable used by the rotation engine.
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

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
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
