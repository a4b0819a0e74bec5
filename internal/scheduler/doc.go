// Package scheduler is the job service and queue: admission, FIFO ordering
// with head-of-line blocking for exclusive-codec jobs, and the probe→plan→
// run pipeline that turns a queued path into a running FFmpeg process. It is
// the job repository's only writer, so the transition and concurrency
// rules only need proving at one call site.
//
// Files:
//   - scheduler.go: admission, concurrency control, cancellation
//   - pipeline.go:  per-job probe/plan/start sequence run off the admission path
package scheduler
