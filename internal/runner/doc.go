// Package runner spawns, supervises, and terminates the external FFmpeg
// processes the Planner's decisions describe. It owns the process table
// exclusively: the scheduler never touches an *os/exec.Cmd directly, only
// calls Start/Cancel/SetMaxConcurrency and observes the event bus.
//
// Files:
//   - supervisor.go: Supervisor: the process table and Start/Cancel/capacity checks
//   - progress.go:   stderr "-progress pipe:2" key=value stream parser
//   - classify.go:   stderr pattern classification into a short diagnosis message
package runner
