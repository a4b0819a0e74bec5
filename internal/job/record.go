package job

import (
	"time"

	"github.com/google/uuid"

	"github.com/backmassage/mxcore/internal/catalog"
	"github.com/backmassage/mxcore/internal/planner"
	"github.com/backmassage/mxcore/internal/probe"
)

// ID uniquely and stably identifies a job for its entire lifetime.
type ID string

// NewID generates a fresh, random job id.
func NewID() ID {
	return ID(uuid.NewString())
}

// Record is the mutable record the repository owns exclusively. Only the
// scheduler and runner, acting through the repository, may mutate it.
type Record struct {
	ID        ID
	Path      string
	PresetID  string
	Tier      catalog.Tier
	Exclusive bool

	Summary  *probe.ProbeSummary
	Decision *planner.Decision

	OutputPath string
	Log        *RingBuffer

	CreatedAt time.Time
	UpdatedAt time.Time

	State State
}

// NewRecord builds a fresh Record in the queued phase.
func NewRecord(path, presetID string, tier catalog.Tier, now time.Time) *Record {
	return &Record{
		ID:        NewID(),
		Path:      path,
		PresetID:  presetID,
		Tier:      tier,
		Log:       NewRingBuffer(),
		CreatedAt: now,
		UpdatedAt: now,
		State:     QueuedState{EnqueuedAt: now},
	}
}

// Phase is a convenience accessor for Record.State.Phase().
func (r *Record) Phase() Phase {
	if r.State == nil {
		return PhaseQueued
	}
	return r.State.Phase()
}

// EnqueuedAt returns the timestamp carried by every state in the sum type.
func (r *Record) EnqueuedAt() time.Time {
	return r.State.enqueuedAt()
}

// Clone returns a shallow copy to hand to a UI snapshot consumer. Scalar
// fields are copied; the Summary, Decision and Log pointers are still
// shared with the repository's record (Summary/Decision are write-once
// after planning, and Log is the live, concurrency-safe ring buffer).
func (r *Record) Clone() Record {
	return *r
}
