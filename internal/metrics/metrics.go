// Package metrics instruments C4/C5/C6 with prometheus collectors, carried
// as part of the ambient stack (spec.md §9: ambient concerns are kept even
// where a spec non-goal excludes strict latency guarantees).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// VerificationDecisions counts C4 decisions by outcome: "verified",
// "unauthorized", "no_candidate".
var VerificationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kiosk_verification_decisions_total",
	Help: "Count of C4 verification decisions by outcome.",
}, []string{"outcome"})

// GateRejections counts C5 ValidationFailure rejections by reason code.
var GateRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kiosk_attendance_gate_rejections_total",
	Help: "Count of C5 attendance gate rejections by reason.",
}, []string{"reason"})

// AttendanceEvents counts AttendanceLog rows written, by log type.
var AttendanceEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kiosk_attendance_events_total",
	Help: "Count of attendance events recorded by log type.",
}, []string{"log_type"})

// SyncCycleDuration observes how long one push/pull cycle took, by
// direction ("push"/"pull") and stream.
var SyncCycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "kiosk_sync_cycle_duration_seconds",
	Help:    "Duration of one C6 sync cycle by direction and stream.",
	Buckets: prometheus.DefBuckets,
}, []string{"direction", "stream"})

// SyncRows counts rows processed per cycle by direction, stream, and result
// ("ok"/"error").
var SyncRows = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kiosk_sync_rows_total",
	Help: "Count of rows processed by C6 per direction, stream, and result.",
}, []string{"direction", "stream", "result"})

// BreakerState reports the remote circuit breaker's state as a gauge: 0
// closed, 1 half-open, 2 open (mirrors gobreaker.State's own ordering).
var BreakerState = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "kiosk_remote_breaker_state",
	Help: "Remote store circuit breaker state: 0=closed, 1=half-open, 2=open.",
})
