package job

import "github.com/rs/zerolog/log"

// transitions encodes the lifecycle graph as an adjacency table. This is
// the single source of truth other layers (a UI-side guard, the scheduler,
// the runner) must all agree with.
var transitions = map[Phase][]Phase{
	PhaseQueued:    {PhaseProbing, PhaseCancelled},
	PhaseProbing:   {PhasePlanning, PhaseFailed, PhaseCancelled},
	PhasePlanning:  {PhaseRunning, PhaseFailed, PhaseCancelled},
	PhaseRunning:   {PhaseCompleted, PhaseFailed, PhaseCancelled},
	PhaseCompleted: nil,
	PhaseFailed:    nil,
	PhaseCancelled: nil,
}

// CanTransition reports whether moving from -> to is permitted by the
// lifecycle graph.
func CanTransition(from, to Phase) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// DevMode gates EnsureTransition's behavior on an illegal transition: panic
// in development builds (to catch the bug immediately), log-and-continue
// in production (to keep the process alive for the other jobs it's
// servicing). Set by cmd/mxcore at startup from the dev_mode setting.
var DevMode = false

// EnsureTransition validates from -> to against the lifecycle graph. On
// violation it panics when DevMode is set, otherwise logs an error and
// returns false so the caller can abandon the mutation.
func EnsureTransition(id ID, from, to Phase) bool {
	if CanTransition(from, to) {
		return true
	}
	msg := "illegal job state transition"
	if DevMode {
		panic(msg + ": " + string(from) + " -> " + string(to) + " (job " + string(id) + ")")
	}
	log.Error().Str("job_id", string(id)).Str("from", string(from)).Str("to", string(to)).Msg(msg)
	return false
}
