package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/backmassage/mxcore/internal/errs"
	"github.com/backmassage/mxcore/internal/eventbus"
	"github.com/backmassage/mxcore/internal/job"
	"github.com/backmassage/mxcore/internal/outpath"
	"github.com/backmassage/mxcore/internal/planner"
	"github.com/backmassage/mxcore/internal/probe"
)

// tryAdvance admits queued jobs one at a time, stopping the instant the
// current head can't be started: strict head-of-line blocking, so a later
// non-exclusive job never cuts in front of a waiting exclusive one.
func (s *Scheduler) tryAdvance() {
	for s.tryStartHead() {
	}
}

// tryStartHead picks the FIFO head, tries to acquire its concurrency slot,
// and if successful transitions it to probing and spawns its pipeline. The
// whole check-acquire-transition sequence runs under s.mu so two
// concurrent triggers (e.g. an Enqueue and a completion event) can never
// both pick the same head.
func (s *Scheduler) tryStartHead() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	queued := s.repo.GetByStatus(job.PhaseQueued)
	if len(queued) == 0 {
		return false
	}
	head := queued[0]

	weight := int64(1)
	if head.Exclusive {
		weight = s.maxConcurrency
	}
	if !s.sem.TryAcquire(weight) {
		return false
	}

	startedAt := time.Now()
	if !s.beginProbingLocked(head.ID, startedAt) {
		s.sem.Release(weight)
		return false
	}

	s.registerSlotLocked(head.ID, slot{sem: s.sem, weight: weight, exclusive: head.Exclusive})
	go s.runPipeline(head.ID, head.Path, startedAt)
	return true
}

// runPipeline carries one job from probing through to either a running
// FFmpeg process or a terminal failure/cancellation. It holds no lock for
// the duration of the probe or the planner call; both are pure or I/O-bound
// and must not block scheduler admission for other jobs.
func (s *Scheduler) runPipeline(id job.ID, path string, startedAt time.Time) {
	ctx := context.Background()

	if s.isCancelRequested(id) {
		s.finishCancelled(id, startedAt)
		return
	}

	summary, err := s.probeFn(ctx, path)
	if err != nil {
		s.finishFailed(id, startedAt, codeForProbeErr(err), err)
		return
	}

	if s.isCancelRequested(id) {
		s.finishCancelled(id, startedAt)
		return
	}

	rec, ok := s.repo.Get(id)
	if !ok {
		s.releaseSlot(id)
		return
	}

	preset, ok := s.cat.ResolvePreset(rec.PresetID)
	if !ok {
		s.finishFailed(id, startedAt, errs.PresetUnavailable, fmt.Errorf("preset %q no longer in catalog", rec.PresetID))
		return
	}

	if !s.transition(id, job.PhasePlanning, func(r *job.Record) {
		r.Summary = &summary
		r.State = job.PlanningState{EnqueuedAt: r.EnqueuedAt(), StartedAt: startedAt}
	}) {
		s.releaseSlot(id)
		return
	}

	rule, _ := s.cat.ResolveContainerRule(preset.Container)
	caps := s.registry.Load(ctx)
	decision := planner.Plan(preset, rule, summary, caps, rec.Tier)

	for _, w := range decision.Warnings {
		log.Warn().Str("job_id", string(id)).Str("preset", preset.ID).Msg(w)
		s.rec.PlannerWarning(preset.ID)
	}

	outPath := outpath.Build(rec.Path, preset.ID, decision.Tier, preset.Extension(), s.Preferences())

	if s.isCancelRequested(id) {
		s.finishCancelled(id, startedAt)
		return
	}

	if !s.transition(id, job.PhaseRunning, func(r *job.Record) {
		r.Decision = &decision
		r.Exclusive = decision.Exclusive
		r.OutputPath = outPath
		r.State = job.RunningState{EnqueuedAt: r.EnqueuedAt(), StartedAt: startedAt}
	}) {
		s.releaseSlot(id)
		return
	}

	if err := s.sup.Start(id, rec.Path, decision.Tokens, outPath, decision.Exclusive, summary.DurationSec, rec.Log); err != nil {
		code, ok := errs.CodeOf(err)
		if !ok {
			code = errs.RunnerSpawnFailed
		}
		s.finishFailed(id, startedAt, code, err)
		return
	}

	// A cancel that raced the spawn found no process handle to signal;
	// the handle exists now, so honor the flag.
	if s.isCancelRequested(id) {
		s.sup.Cancel(id)
	}

	// The process is live. Its completion arrives asynchronously as a
	// TopicCompletion event, handled by onCompletion, which releases this
	// job's slot and advances the queue.
}

// transition applies mutator to id's record only if its current phase
// legally transitions to to. Returns false if the record is unknown
// or the transition was refused.
func (s *Scheduler) transition(id job.ID, to job.Phase, mutator func(*job.Record)) bool {
	ok := false
	var from job.Phase
	found := s.repo.Update(id, func(r *job.Record) {
		from = r.Phase()
		if !job.EnsureTransition(id, from, to) {
			return
		}
		mutator(r)
		ok = true
	})
	if found && ok {
		s.rec.JobPhaseChanged(from, to)
	}
	return found && ok
}

func (s *Scheduler) finishFailed(id job.ID, startedAt time.Time, code errs.Code, cause error) {
	now := time.Now()
	s.transition(id, job.PhaseFailed, func(r *job.Record) {
		r.State = job.FailedState{
			EnqueuedAt: r.EnqueuedAt(),
			StartedAt:  startedAt,
			FinishedAt: now,
			Error:      cause.Error(),
			Code:       code,
		}
	})
	log.Error().Str("job_id", string(id)).Err(cause).Str("code", string(code)).Msg("scheduler: job failed")
	s.rec.JobTerminal("failed", now.Sub(startedAt))
	s.releaseSlot(id)
	s.tryAdvance()
}

func (s *Scheduler) finishCancelled(id job.ID, startedAt time.Time) {
	now := time.Now()
	s.transition(id, job.PhaseCancelled, func(r *job.Record) {
		r.State = job.CancelledState{EnqueuedAt: r.EnqueuedAt(), StartedAt: startedAt, FinishedAt: now}
	})
	s.rec.JobTerminal("cancelled", now.Sub(startedAt))
	s.releaseSlot(id)
	s.tryAdvance()
}

// onCompletion finalizes a running job once the runner publishes its
// outcome. A stray event for a job that is no longer in the running phase
// (already finalized some other way) is ignored.
func (s *Scheduler) onCompletion(ev eventbus.Event) {
	rec, ok := s.repo.Get(ev.JobID)
	if !ok || rec.Phase() != job.PhaseRunning {
		return
	}
	running, _ := rec.State.(job.RunningState)
	now := time.Now()

	var outcome string
	switch {
	case ev.Completion.Cancelled:
		outcome = "cancelled"
		s.transition(ev.JobID, job.PhaseCancelled, func(r *job.Record) {
			r.State = job.CancelledState{EnqueuedAt: r.EnqueuedAt(), StartedAt: running.StartedAt, FinishedAt: now}
		})
	case ev.Completion.Success:
		outcome = "completed"
		s.transition(ev.JobID, job.PhaseCompleted, func(r *job.Record) {
			r.State = job.CompletedState{EnqueuedAt: r.EnqueuedAt(), StartedAt: running.StartedAt, FinishedAt: now, OutputPath: r.OutputPath}
		})
	default:
		outcome = "failed"
		s.transition(ev.JobID, job.PhaseFailed, func(r *job.Record) {
			r.State = job.FailedState{
				EnqueuedAt: r.EnqueuedAt(),
				StartedAt:  running.StartedAt,
				FinishedAt: now,
				Error:      ev.Completion.Message,
				Code:       ev.Completion.Code,
			}
		})
	}

	s.rec.JobTerminal(outcome, now.Sub(running.StartedAt))
	s.releaseSlot(ev.JobID)
	s.tryAdvance()
}

// onProgress folds a progress event into the job's RunningState. It is a
// best-effort update: if the job has already left the running phase (a
// straggling event after completion), it's silently dropped.
func (s *Scheduler) onProgress(ev eventbus.Event) {
	s.repo.Update(ev.JobID, func(r *job.Record) {
		running, ok := r.State.(job.RunningState)
		if !ok {
			return
		}
		running.Progress = ev.Progress
		r.State = running
	})
}

func codeForProbeErr(err error) errs.Code {
	switch {
	case errors.Is(err, probe.ErrMissing):
		return errs.ProbeMissing
	case errors.Is(err, probe.ErrInvalid):
		return errs.ProbeInvalid
	case errors.Is(err, probe.ErrProcess):
		return errs.ProbeProcessError
	default:
		return errs.ProbeProcessError
	}
}
