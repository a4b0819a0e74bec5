package runner

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/backmassage/mxcore/internal/errs"
	"github.com/backmassage/mxcore/internal/eventbus"
	"github.com/backmassage/mxcore/internal/job"
)

// cancelGrace is how long Cancel waits after an interrupt signal before
// escalating to a forced kill.
const cancelGrace = 3 * time.Second

// handle is the process-table entry for one running job.
type handle struct {
	cmd       *exec.Cmd
	exclusive bool
	cancelled atomic.Bool
}

// Supervisor owns the live FFmpeg process table. It never blocks its
// caller: Start returns as soon as the process is spawned (or the request
// is rejected), and completion is reported asynchronously on the event bus.
type Supervisor struct {
	mu             sync.Mutex
	running        map[job.ID]*handle
	maxConcurrency atomic.Int64

	bus       *eventbus.Bus
	ffmpegBin string
}

// NewSupervisor returns a Supervisor with the given starting concurrency
// cap. A cap below 1 is treated as 1.
func NewSupervisor(bus *eventbus.Bus, ffmpegBin string, maxConcurrency int) *Supervisor {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	s := &Supervisor{
		running:   make(map[job.ID]*handle),
		bus:       bus,
		ffmpegBin: ffmpegBin,
	}
	s.maxConcurrency.Store(int64(maxConcurrency))
	return s
}

// SetMaxConcurrency updates the concurrency cap at runtime. Jobs already
// running are unaffected; the new cap only gates future Starts.
func (s *Supervisor) SetMaxConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	s.maxConcurrency.Store(int64(n))
}

// RunningCount returns the number of currently supervised processes.
func (s *Supervisor) RunningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// HasExclusiveRunning reports whether an exclusive-codec job currently
// holds the process table, which blocks every other exclusive job behind
// it.
func (s *Supervisor) HasExclusiveRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.running {
		if h.exclusive {
			return true
		}
	}
	return false
}

// Start spawns FFmpeg for one job and returns once the process exists (or
// the request was rejected before spawning). It never waits for the process
// to finish; completion arrives later as a TopicCompletion event.
//
// In order: argument validation, capacity check, exclusive compatibility,
// output directory preparation, spawn, registration with a reading
// goroutine, and eventual completion publish.
func (s *Supervisor) Start(jobID job.ID, sourcePath string, tokens []string, outputPath string, exclusive bool, durationSec float64, logBuf *job.RingBuffer) error {
	if len(tokens) == 0 {
		return errs.New(errs.JobInvalidArgs, fmt.Errorf("empty command token list"))
	}
	if sourcePath == "" {
		return errs.New(errs.JobMissingSource, fmt.Errorf("empty source path"))
	}
	if outputPath == "" {
		return errs.New(errs.JobInvalidArgs, fmt.Errorf("empty output path"))
	}

	s.mu.Lock()
	if int64(len(s.running)) >= s.maxConcurrency.Load() {
		s.mu.Unlock()
		return errs.New(errs.JobConcurrencyLimit, fmt.Errorf("%d jobs already running", len(s.running)))
	}
	if exclusive {
		for _, h := range s.running {
			if h.exclusive {
				s.mu.Unlock()
				return errs.New(errs.JobExclusiveBlocked, fmt.Errorf("another exclusive job is running"))
			}
		}
	}
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return errs.New(errs.JobOutputPermission, err)
	}

	argv := make([]string, 0, len(tokens)+6)
	argv = append(argv, "-y", "-i", sourcePath)
	argv = append(argv, tokens...)
	argv = append(argv, "-nostdin", outputPath)

	// Lifecycle is managed by Cancel (SIGTERM, then a forced Kill after
	// cancelGrace) rather than a context, since exec.CommandContext's
	// default cancellation is an immediate Kill with no grace period.
	cmd := exec.Command(s.ffmpegBin, argv...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errs.New(errs.RunnerSpawnFailed, err)
	}

	if err := cmd.Start(); err != nil {
		return errs.New(errs.RunnerSpawnFailed, err)
	}

	h := &handle{cmd: cmd, exclusive: exclusive}

	s.mu.Lock()
	s.running[jobID] = h
	s.mu.Unlock()

	startedAt := time.Now()
	pr := newProgressReader(durationSec)

	go func() {
		scanProgress(stderr, pr,
			func(p job.Progress) {
				s.bus.Publish(eventbus.Event{Topic: eventbus.TopicProgress, JobID: jobID, Progress: p})
			},
			func(line string) {
				if logBuf != nil {
					logBuf.Append(line)
				}
				s.bus.Publish(eventbus.Event{Topic: eventbus.TopicStderr, JobID: jobID, Line: line})
			},
		)

		waitErr := cmd.Wait()

		s.mu.Lock()
		delete(s.running, jobID)
		s.mu.Unlock()

		s.publishCompletion(jobID, h, waitErr, startedAt, logBuf)
	}()

	return nil
}

func (s *Supervisor) publishCompletion(jobID job.ID, h *handle, waitErr error, startedAt time.Time, logBuf *job.RingBuffer) {
	completion := eventbus.Completion{Success: waitErr == nil}

	switch {
	case h.cancelled.Load():
		completion.Cancelled = true
		completion.Success = false
		completion.Message = "cancelled by user"
	case waitErr == nil:
		completion.Success = true
	default:
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			completion.ExitCode = exitErr.ExitCode()
		}
		completion.Code = errs.RunnerInterrupted
		completion.Message = waitErr.Error()
		if logBuf != nil {
			tail := tailJoin(logBuf.Lines(), 40)
			if diag := classifyFailure(tail); diag != "" {
				completion.Message = diag
			}
		}
	}

	log.Debug().
		Str("job_id", string(jobID)).
		Bool("success", completion.Success).
		Dur("elapsed", time.Since(startedAt)).
		Msg("runner: job finished")

	s.bus.Publish(eventbus.Event{Topic: eventbus.TopicCompletion, JobID: jobID, Completion: completion})
}

// Cancel requests graceful termination of jobID's process, escalating to a
// forced kill if it has not exited within cancelGrace. Returns false if no
// such job is currently running.
func (s *Supervisor) Cancel(jobID job.ID) bool {
	s.mu.Lock()
	h, ok := s.running[jobID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	h.cancelled.Store(true)
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Signal(syscall.SIGTERM)
	}

	go func() {
		timer := time.NewTimer(cancelGrace)
		defer timer.Stop()
		<-timer.C

		s.mu.Lock()
		still, stillRunning := s.running[jobID]
		s.mu.Unlock()
		if stillRunning && still == h && h.cmd.Process != nil {
			_ = h.cmd.Process.Kill()
		}
	}()

	return true
}

func tailJoin(lines []string, n int) string {
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}
