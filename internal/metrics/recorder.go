package metrics

import (
	"time"

	"github.com/backmassage/mxcore/internal/errs"
	"github.com/backmassage/mxcore/internal/job"
)

// Recorder implements the scheduler's observability hook against the
// package-level instruments above. The scheduler package never imports
// this package directly (it only declares the interface it wants
// satisfied); wiring happens one level up, in the facade, so the domain
// logic stays independent of any particular metrics backend.
type Recorder struct{}

// JobEnqueued implements scheduler.Recorder.
func (Recorder) JobEnqueued(presetID string) {
	JobsEnqueuedTotal.WithLabelValues(presetID).Inc()
}

// JobRejected implements scheduler.Recorder.
func (Recorder) JobRejected(code errs.Code) {
	JobsRejectedTotal.WithLabelValues(string(code)).Inc()
}

// JobPhaseChanged implements scheduler.Recorder. from is the zero Phase
// for a brand new job, in which case only the destination gauge is
// incremented.
func (Recorder) JobPhaseChanged(from, to job.Phase) {
	if from != "" {
		JobsByPhase.WithLabelValues(string(from)).Dec()
	}
	JobsByPhase.WithLabelValues(string(to)).Inc()
}

// PlannerWarning implements scheduler.Recorder.
func (Recorder) PlannerWarning(presetID string) {
	PlannerWarningsTotal.WithLabelValues(presetID).Inc()
}

// JobTerminal implements scheduler.Recorder.
func (Recorder) JobTerminal(outcome string, duration time.Duration) {
	RunnerDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}
