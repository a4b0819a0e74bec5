package probe

import "errors"

// Sentinel errors matching the canonical probe error codes. Callers
// compare with errors.Is; the scheduler maps these to the string codes
// stored on a failed JobRecord.
var (
	// ErrMissing means the probe tool itself was not found on PATH.
	ErrMissing = errors.New("probe_missing")
	// ErrInvalid means the probe tool returned output that was not valid
	// JSON. Absent fields are not an error; they parse as zero values.
	ErrInvalid = errors.New("probe_invalid")
	// ErrProcess means the probe tool ran but exited non-zero.
	ErrProcess = errors.New("probe_process_error")
)
