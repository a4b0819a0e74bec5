package job

import (
	"time"

	"github.com/backmassage/mxcore/internal/errs"
)

// Phase is the discriminant of the JobState sum type.
type Phase string

const (
	PhaseQueued    Phase = "queued"
	PhaseProbing   Phase = "probing"
	PhasePlanning  Phase = "planning"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
	PhaseCancelled Phase = "cancelled"
)

// Terminal reports whether p is one of the three terminal phases.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseCancelled
}

// State is implemented by each member of the job state sum type. Keeping
// per-phase fields on distinct concrete types (rather than collapsing to a
// single status string with optional fields) is deliberate: a RunningState
// always carries a Progress, a FailedState always carries an error, and the
// type system enforces that instead of runtime nil-checks.
type State interface {
	Phase() Phase
	enqueuedAt() time.Time
}

// Progress is the live transcode progress carried by RunningState.
type Progress struct {
	ProcessedSeconds float64
	FPS              float64
	Speed            float64
	Ratio            float64
	ETASeconds       float64
}

type QueuedState struct {
	EnqueuedAt time.Time
}

func (s QueuedState) Phase() Phase          { return PhaseQueued }
func (s QueuedState) enqueuedAt() time.Time { return s.EnqueuedAt }

type ProbingState struct {
	EnqueuedAt time.Time
	StartedAt  time.Time
}

func (s ProbingState) Phase() Phase          { return PhaseProbing }
func (s ProbingState) enqueuedAt() time.Time { return s.EnqueuedAt }

type PlanningState struct {
	EnqueuedAt time.Time
	StartedAt  time.Time
}

func (s PlanningState) Phase() Phase          { return PhasePlanning }
func (s PlanningState) enqueuedAt() time.Time { return s.EnqueuedAt }

type RunningState struct {
	EnqueuedAt time.Time
	StartedAt  time.Time
	Progress   Progress
}

func (s RunningState) Phase() Phase          { return PhaseRunning }
func (s RunningState) enqueuedAt() time.Time { return s.EnqueuedAt }

type CompletedState struct {
	EnqueuedAt time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	OutputPath string
}

func (s CompletedState) Phase() Phase          { return PhaseCompleted }
func (s CompletedState) enqueuedAt() time.Time { return s.EnqueuedAt }

type FailedState struct {
	EnqueuedAt time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
	Code       errs.Code
}

func (s FailedState) Phase() Phase          { return PhaseFailed }
func (s FailedState) enqueuedAt() time.Time { return s.EnqueuedAt }

type CancelledState struct {
	EnqueuedAt time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

func (s CancelledState) Phase() Phase          { return PhaseCancelled }
func (s CancelledState) enqueuedAt() time.Time { return s.EnqueuedAt }
