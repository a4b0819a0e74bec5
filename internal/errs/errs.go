// Package errs defines the canonical error codes shared by the scheduler,
// runner, and planner. Codes are string-valued so they can be stored
// directly on a terminal JobRecord and surfaced to a UI without translation.
package errs

import "errors"

// Code is a canonical error code. The zero value is not a valid code.
type Code string

const (
	JobInvalidArgs       Code = "job_invalid_args"
	JobMissingSource     Code = "job_missing_source"
	JobConcurrencyLimit  Code = "job_concurrency_limit"
	JobExclusiveBlocked  Code = "job_exclusive_blocked"
	JobOutputPermission  Code = "job_output_permission"
	ProbeMissing         Code = "probe_missing"
	ProbeInvalid         Code = "probe_invalid"
	ProbeProcessError    Code = "probe_process_error"
	PresetUnavailable    Code = "preset_unavailable"
	RunnerSpawnFailed    Code = "runner_spawn_failed"
	RunnerInterrupted    Code = "runner_interrupted"
)

// CodedError pairs a canonical Code with the underlying error that produced
// it. errors.Is/As work through the usual Unwrap chain.
type CodedError struct {
	Code Code
	Err  error
}

func (e *CodedError) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Err.Error()
}

func (e *CodedError) Unwrap() error { return e.Err }

// New wraps err under the given code. If err is nil the code's own string
// is used as the message.
func New(code Code, err error) *CodedError {
	return &CodedError{Code: code, Err: err}
}

// CodeOf extracts the canonical code from err, if it (or something it
// wraps) is a *CodedError. Returns ("", false) otherwise.
func CodeOf(err error) (Code, bool) {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return "", false
}
