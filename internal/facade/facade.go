// Package facade is the single surface UIs depend on: it composes the
// capability registry, preset catalog, job repository, scheduler, and
// event bus behind one set of methods that never block and are safe to
// call from any UI thread. Hosts drive jobs only through these methods;
// they use internal/job for the record and id types the facade returns,
// but never call internal/scheduler or internal/runner directly.
package facade

import (
	"context"

	"github.com/backmassage/mxcore/internal/capability"
	"github.com/backmassage/mxcore/internal/catalog"
	"github.com/backmassage/mxcore/internal/config"
	"github.com/backmassage/mxcore/internal/eventbus"
	"github.com/backmassage/mxcore/internal/job"
	"github.com/backmassage/mxcore/internal/metrics"
	"github.com/backmassage/mxcore/internal/runner"
	"github.com/backmassage/mxcore/internal/scheduler"
)

// EnqueueResult is the outcome of EnqueueMany: the jobs admitted and the
// source paths rejected as duplicates of an existing or in-batch job.
type EnqueueResult struct {
	Accepted   []job.ID
	Duplicates []string
}

// Facade is the orchestrator surface hosts depend on. Construct one with
// New and keep it for the process's lifetime; it owns the single job
// repository, scheduler, and supervisor instance.
type Facade struct {
	catalog    *catalog.Catalog
	registry   *capability.Registry
	repo       *job.Repository
	bus        *eventbus.Bus
	supervisor *runner.Supervisor
	scheduler  *scheduler.Scheduler
}

// New wires a Facade from a loaded catalog, a capability registry bound to
// the configured ffmpeg binary, and the host's preferences. probeFn may be
// nil to use the real probe.Probe implementation; tests pass a stub.
func New(cat *catalog.Catalog, ffmpegBin string, prefs config.Preferences, probeFn scheduler.ProbeFunc) *Facade {
	bus := eventbus.New()
	repo := job.NewRepository()
	registry := capability.NewRegistry(ffmpegBin)
	sup := runner.NewSupervisor(bus, ffmpegBin, prefs.MaxConcurrency)
	sched := scheduler.New(bus, repo, sup, cat, registry, prefs, probeFn)
	sched.SetRecorder(metrics.Recorder{})

	return &Facade{
		catalog:    cat,
		registry:   registry,
		repo:       repo,
		bus:        bus,
		supervisor: sup,
		scheduler:  sched,
	}
}

// Close detaches the facade's internal event bus subscriptions. Call once
// at process shutdown.
func (f *Facade) Close() {
	f.scheduler.Close()
}

// LoadCapabilities returns the memoized FFmpeg capability snapshot,
// probing the toolchain on first call.
func (f *Facade) LoadCapabilities(ctx context.Context) capability.Snapshot {
	return f.registry.Load(ctx)
}

// ListPresets returns every preset in the catalog.
func (f *Facade) ListPresets() []catalog.Preset {
	return f.catalog.ListPresets()
}

// Enqueue admits one source path under presetID at tier, returning its new
// job id. Returns an error synchronously for an unknown preset or a path
// already occupying a non-terminal record.
func (f *Facade) Enqueue(path, presetID string, tier catalog.Tier) (job.ID, error) {
	return f.scheduler.Enqueue(path, presetID, tier)
}

// EnqueueMany admits a batch of source paths under one preset/tier.
func (f *Facade) EnqueueMany(paths []string, presetID string, tier catalog.Tier) EnqueueResult {
	accepted, duplicates := f.scheduler.EnqueueMany(paths, presetID, tier)
	return EnqueueResult{Accepted: accepted, Duplicates: duplicates}
}

// StartJob bypasses FIFO ordering to start a specific queued job.
func (f *Facade) StartJob(id job.ID) error {
	return f.scheduler.StartJob(id)
}

// StartNext admits as many queued jobs as the current concurrency and
// exclusivity constraints allow.
func (f *Facade) StartNext() {
	f.scheduler.StartNext()
}

// Cancel requests cancellation of id. Returns false if id is unknown.
func (f *Facade) Cancel(id job.ID) bool {
	return f.scheduler.Cancel(id)
}

// ClearCompleted discards every terminal job record.
func (f *Facade) ClearCompleted() {
	f.scheduler.ClearCompleted()
}

// SetConcurrency updates the admission cap; it never preempts a job
// already occupying a slot.
func (f *Facade) SetConcurrency(n int) {
	f.scheduler.SetConcurrency(n)
}

// Subscribe registers handler for topic on the event bus, returning an
// Unsubscribe func.
func (f *Facade) Subscribe(topic eventbus.Topic, handler eventbus.Handler) eventbus.Unsubscribe {
	return f.bus.Subscribe(topic, handler)
}

// JobsSnapshot returns every job record currently held, in FIFO order, as
// value copies safe for a UI to read without holding the repository lock.
func (f *Facade) JobsSnapshot() []job.Record {
	recs := f.repo.GetAll()
	out := make([]job.Record, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}
