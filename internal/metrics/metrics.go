// Package metrics defines the Prometheus instruments mxcore's
// orchestration core exposes. It is observability only: the core never
// starts an HTTP listener itself, it only registers these instruments
// against a prometheus.Registerer the host process supplies and may expose
// however it likes (an HTTP handler, a push gateway, nothing at all).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// JobsByPhase tracks the current number of jobs in each lifecycle
	// phase, mirroring the Job Repository's own GetByStatus grouping.
	JobsByPhase = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mxcore",
		Name:      "jobs_by_phase",
		Help:      "Current number of jobs in each lifecycle phase.",
	}, []string{"phase"})

	// PlannerWarningsTotal counts every warning the Planner attaches to a
	// Decision (missing encoder, clamped GIF parameter, tier fallback,
	// and so on), labeled by preset so a host can spot a preset whose
	// catalog entry no longer matches the installed toolchain.
	PlannerWarningsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mxcore",
		Name:      "planner_warnings_total",
		Help:      "Total planner warnings emitted, by preset id.",
	}, []string{"preset"})

	// RunnerDurationSeconds observes wall-clock time from a job entering
	// the running phase to its terminal outcome, labeled by outcome so a
	// completed/failed/cancelled split is visible without a separate
	// counter.
	RunnerDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mxcore",
		Name:      "runner_duration_seconds",
		Help:      "Wall-clock duration of the running phase, by terminal outcome.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 900, 1800},
	}, []string{"outcome"})

	// JobsEnqueuedTotal counts every successful Enqueue/EnqueueMany
	// admission, labeled by preset.
	JobsEnqueuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mxcore",
		Name:      "jobs_enqueued_total",
		Help:      "Total jobs admitted, by preset id.",
	}, []string{"preset"})

	// JobsRejectedTotal counts admission rejections (duplicate path,
	// unknown preset), labeled by canonical error code.
	JobsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mxcore",
		Name:      "jobs_rejected_total",
		Help:      "Total admission rejections, by error code.",
	}, []string{"code"})
)

// Register attaches every mxcore instrument to reg. The host calls this
// once at startup against its own prometheus.Registry (or the default
// global one) before deciding whether and how to expose it.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		JobsByPhase,
		PlannerWarningsTotal,
		RunnerDurationSeconds,
		JobsEnqueuedTotal,
		JobsRejectedTotal,
	)
}
