package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/backmassage/mxcore/internal/capability"
	"github.com/backmassage/mxcore/internal/catalog"
	"github.com/backmassage/mxcore/internal/config"
	"github.com/backmassage/mxcore/internal/errs"
	"github.com/backmassage/mxcore/internal/eventbus"
	"github.com/backmassage/mxcore/internal/job"
	"github.com/backmassage/mxcore/internal/planner"
	"github.com/backmassage/mxcore/internal/probe"
	"github.com/backmassage/mxcore/internal/runner"
)

// ProbeFunc matches probe.Probe's signature. Tests substitute a stub so the
// scheduler's admission and lifecycle logic can be exercised without
// shelling out to ffprobe.
type ProbeFunc func(ctx context.Context, path string) (probe.ProbeSummary, error)

// Recorder receives lifecycle observability callbacks. internal/metrics
// implements it against Prometheus instruments; the scheduler itself
// stays unaware of any particular metrics backend. SetRecorder defaults to
// a no-op implementation, so a caller that never wires metrics pays
// nothing but an interface call.
type Recorder interface {
	JobEnqueued(presetID string)
	JobRejected(code errs.Code)
	JobPhaseChanged(from, to job.Phase)
	PlannerWarning(presetID string)
	JobTerminal(outcome string, duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) JobEnqueued(string)                 {}
func (noopRecorder) JobRejected(errs.Code)               {}
func (noopRecorder) JobPhaseChanged(job.Phase, job.Phase) {}
func (noopRecorder) PlannerWarning(string)               {}
func (noopRecorder) JobTerminal(string, time.Duration)   {}

// slot is the bookkeeping the scheduler keeps per in-flight job for the
// semaphore instance and weight it acquired, since SetConcurrency swaps the
// semaphore out from under already-running jobs (the admission gate only
// governs future starts, matching the runner's own SetMaxConcurrency).
type slot struct {
	sem       *semaphore.Weighted
	weight    int64
	exclusive bool
}

// Scheduler is the Job Repository's only writer: admission, FIFO ordering
// with head-of-line blocking for exclusive-codec jobs, and the probe→plan→
// run pipeline that turns a queued path into a running FFmpeg process.
//
// A job occupies a concurrency slot (sem weight) for its entire probing ->
// planning -> running span, not just while a subprocess is alive, which
// keeps a burst of EnqueueMany from firing maxConcurrency+N probes at once.
// An exclusive-codec job acquires the full semaphore weight, so no other
// job's TryAcquire can succeed until it releases; no separate "is an
// exclusive job running" flag is needed.
type Scheduler struct {
	mu             sync.Mutex
	sem            *semaphore.Weighted
	maxConcurrency int64
	inFlightCount  int64
	inflight       map[job.ID]slot
	cancelFlags    map[job.ID]bool

	repo     *job.Repository
	sup      *runner.Supervisor
	bus      *eventbus.Bus
	cat      *catalog.Catalog
	registry *capability.Registry
	probeFn  ProbeFunc

	prefsMu sync.RWMutex
	prefs   config.Preferences

	rec Recorder

	unsubProgress   eventbus.Unsubscribe
	unsubCompletion eventbus.Unsubscribe
}

// New builds a Scheduler and subscribes it to bus for progress and
// completion events. probeFn may be nil, in which case probe.Probe is used.
func New(bus *eventbus.Bus, repo *job.Repository, sup *runner.Supervisor, cat *catalog.Catalog, registry *capability.Registry, prefs config.Preferences, probeFn ProbeFunc) *Scheduler {
	if probeFn == nil {
		probeFn = probe.Probe
	}
	max := prefs.MaxConcurrency
	if max < 1 {
		max = 1
	}

	s := &Scheduler{
		sem:            semaphore.NewWeighted(int64(max)),
		maxConcurrency: int64(max),
		inflight:       make(map[job.ID]slot),
		cancelFlags:    make(map[job.ID]bool),
		repo:           repo,
		sup:            sup,
		bus:            bus,
		cat:            cat,
		registry:       registry,
		probeFn:        probeFn,
		prefs:          prefs,
		rec:            noopRecorder{},
	}

	s.unsubProgress = bus.Subscribe(eventbus.TopicProgress, s.onProgress)
	s.unsubCompletion = bus.Subscribe(eventbus.TopicCompletion, s.onCompletion)
	return s
}

// SetRecorder installs r as the scheduler's observability sink, replacing
// the default no-op. Call once at startup, before any job is admitted.
func (s *Scheduler) SetRecorder(r Recorder) {
	if r == nil {
		r = noopRecorder{}
	}
	s.rec = r
}

// Close detaches the scheduler's event bus subscriptions.
func (s *Scheduler) Close() {
	if s.unsubProgress != nil {
		s.unsubProgress()
	}
	if s.unsubCompletion != nil {
		s.unsubCompletion()
	}
}

// Preferences returns the naming/output preferences currently in effect.
func (s *Scheduler) Preferences() config.Preferences {
	s.prefsMu.RLock()
	defer s.prefsMu.RUnlock()
	return s.prefs
}

// Enqueue admits one source path under presetID at the given tier. It
// rejects an unknown preset and a path already occupying a non-terminal
// record, both synchronously. On success it reactively attempts to
// start jobs into any free concurrency slot.
func (s *Scheduler) Enqueue(path, presetID string, tier catalog.Tier) (job.ID, error) {
	clean := filepath.Clean(path)
	if clean == "" || clean == "." {
		s.rec.JobRejected(errs.JobMissingSource)
		return "", errs.New(errs.JobMissingSource, fmt.Errorf("empty source path"))
	}
	preset, ok := s.cat.ResolvePreset(presetID)
	if !ok {
		s.rec.JobRejected(errs.PresetUnavailable)
		return "", errs.New(errs.PresetUnavailable, fmt.Errorf("preset %q not found", presetID))
	}
	if s.repo.Exists(clean) {
		s.rec.JobRejected(errs.JobInvalidArgs)
		return "", errs.New(errs.JobInvalidArgs, fmt.Errorf("%s is already queued or in progress", clean))
	}

	rec := job.NewRecord(clean, presetID, tier, time.Now())
	rec.Exclusive = planner.PresetExclusive(preset)
	s.repo.Save(rec)
	s.rec.JobEnqueued(presetID)

	log.Info().Str("job_id", string(rec.ID)).Str("path", clean).Str("preset", presetID).Msg("scheduler: job enqueued")

	s.tryAdvance()
	return rec.ID, nil
}

// EnqueueMany admits a batch of source paths under one preset. Paths that
// duplicate another path already in the batch, or an existing non-terminal
// record, are reported back rather than silently skipped.
func (s *Scheduler) EnqueueMany(paths []string, presetID string, tier catalog.Tier) (accepted []job.ID, duplicates []string) {
	seen := make(map[string]bool, len(paths))
	for _, raw := range paths {
		clean := filepath.Clean(raw)
		if seen[clean] || s.repo.Exists(clean) {
			duplicates = append(duplicates, raw)
			continue
		}
		seen[clean] = true

		id, err := s.Enqueue(clean, presetID, tier)
		if err != nil {
			duplicates = append(duplicates, raw)
			continue
		}
		accepted = append(accepted, id)
	}
	return accepted, duplicates
}

// StartJob bypasses FIFO ordering to start a specific queued job, subject
// to the same concurrency and exclusivity constraints as StartNext. It
// returns a job_concurrency_limit or job_exclusive_blocked error, without
// mutating the job's phase, when those constraints aren't met.
func (s *Scheduler) StartJob(id job.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.repo.Get(id)
	if !ok {
		return errs.New(errs.JobInvalidArgs, fmt.Errorf("unknown job %s", id))
	}
	if rec.Phase() != job.PhaseQueued {
		return errs.New(errs.JobInvalidArgs, fmt.Errorf("job %s is not queued", id))
	}

	weight := int64(1)
	if rec.Exclusive {
		weight = s.maxConcurrency
	}
	if !s.sem.TryAcquire(weight) {
		if s.inFlightCount >= s.maxConcurrency {
			return errs.New(errs.JobConcurrencyLimit, fmt.Errorf("at max concurrency (%d)", s.maxConcurrency))
		}
		return errs.New(errs.JobExclusiveBlocked, fmt.Errorf("blocked by a running exclusive job"))
	}

	startedAt := time.Now()
	if !s.beginProbingLocked(id, startedAt) {
		s.sem.Release(weight)
		return errs.New(errs.JobInvalidArgs, fmt.Errorf("job %s changed phase concurrently", id))
	}

	s.registerSlotLocked(id, slot{sem: s.sem, weight: weight, exclusive: rec.Exclusive})
	go s.runPipeline(id, rec.Path, startedAt)
	return nil
}

// StartNext attempts to admit as many queued jobs as the current
// concurrency and exclusivity constraints allow, always honoring strict
// FIFO head-of-line blocking: if the queue head is not startable, no later
// job is considered in its place.
func (s *Scheduler) StartNext() {
	s.tryAdvance()
}

// Cancel requests cancellation of id, synchronously for a queued job,
// cooperatively for one mid-probe/plan, and via the runner's signal/grace
// path for one actually running. A second call against an already-terminal
// job is a harmless no-op (coalescing).
func (s *Scheduler) Cancel(id job.ID) bool {
	rec, ok := s.repo.Get(id)
	if !ok {
		return false
	}

	switch rec.Phase() {
	case job.PhaseQueued:
		now := time.Now()
		s.repo.Update(id, func(r *job.Record) {
			if !job.EnsureTransition(id, r.Phase(), job.PhaseCancelled) {
				return
			}
			r.State = job.CancelledState{EnqueuedAt: r.EnqueuedAt(), FinishedAt: now}
		})
		return true
	case job.PhaseProbing, job.PhasePlanning:
		s.mu.Lock()
		s.cancelFlags[id] = true
		s.mu.Unlock()
		return true
	case job.PhaseRunning:
		// The flag covers the window between the running transition and
		// the supervisor registering the process handle; the pipeline
		// re-checks it right after a successful spawn.
		s.mu.Lock()
		s.cancelFlags[id] = true
		s.mu.Unlock()
		s.sup.Cancel(id)
		return true
	default:
		return false
	}
}

// SetConcurrency updates the admission cap. It does not preempt jobs
// already occupying a slot; a lower cap only takes effect as those jobs
// finish and release theirs.
func (s *Scheduler) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}

	s.mu.Lock()
	s.maxConcurrency = int64(n)
	s.sem = semaphore.NewWeighted(int64(n))
	s.mu.Unlock()

	s.prefsMu.Lock()
	s.prefs.MaxConcurrency = n
	s.prefsMu.Unlock()

	s.sup.SetMaxConcurrency(n)
	s.tryAdvance()
}

// ClearCompleted discards every terminal job record.
func (s *Scheduler) ClearCompleted() {
	s.repo.Clear()
}

func (s *Scheduler) beginProbingLocked(id job.ID, startedAt time.Time) bool {
	ok := false
	found := s.repo.Update(id, func(r *job.Record) {
		if !job.EnsureTransition(id, r.Phase(), job.PhaseProbing) {
			return
		}
		r.State = job.ProbingState{EnqueuedAt: r.EnqueuedAt(), StartedAt: startedAt}
		ok = true
	})
	return found && ok
}

func (s *Scheduler) registerSlotLocked(id job.ID, sl slot) {
	s.inFlightCount += sl.weight
	s.inflight[id] = sl
}

func (s *Scheduler) releaseSlot(id job.ID) {
	s.mu.Lock()
	sl, ok := s.inflight[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.inflight, id)
	delete(s.cancelFlags, id)
	s.inFlightCount -= sl.weight
	s.mu.Unlock()

	sl.sem.Release(sl.weight)
}

func (s *Scheduler) isCancelRequested(id job.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelFlags[id]
}
