// Package job owns the job record model: the state-machine sum type, the
// bounded per-job log ring buffer, the lifecycle guard that validates state
// transitions, and the in-memory repository the scheduler and runner mutate
// through.
//
// Files:
//   - state.go:      the JobState sum type and its terminal-phase helpers
//   - ringbuffer.go: bounded stderr/log line buffer (500 lines per job)
//   - record.go:     Record, the mutable job record the repository owns
//   - lifecycle.go:  the transition adjacency table and its guard
//   - repository.go: in-memory Record store indexed by id and path; status
//     queries scan every record (there is no status index)
package job
