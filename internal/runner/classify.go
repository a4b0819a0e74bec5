package runner

import "regexp"

// Pre-compiled regexes for classifying FFmpeg stderr into a short
// human-readable diagnosis. The catalog prevents most of these cases up
// front (the container-rule table rejects incompatible subtitle/codec
// combinations before the planner ever emits a token), so classification
// is a diagnostic aid on the completion event's message, not a retry
// engine.
var (
	reMuxQueueOverflow = regexp.MustCompile(`Too many packets buffered for output stream`)

	reTimestampIssue = regexp.MustCompile(
		`(?i)Non-monotonous DTS|non monotonically increasing dts|` +
			`invalid, non monotonically increasing dts|` +
			`DTS .*out of order|PTS .*out of order|` +
			`pts has no value|missing PTS|Timestamps are unset`)

	rePermissionIssue = regexp.MustCompile(`(?i)permission denied|read-only file system`)

	reEncoderUnavailable = regexp.MustCompile(`(?i)Unknown encoder|Encoder not found|Cannot load`)
)

// classifyFailure turns the tail of a failed run's stderr into a short
// diagnosis string for the completion event's Message field. Returns ""
// when nothing recognizable matched.
func classifyFailure(stderr string) string {
	switch {
	case rePermissionIssue.MatchString(stderr):
		return "output path not writable"
	case reEncoderUnavailable.MatchString(stderr):
		return "selected encoder unavailable in this ffmpeg build"
	case reMuxQueueOverflow.MatchString(stderr):
		return "muxing queue overflow; source may need -max_muxing_queue_size increased"
	case reTimestampIssue.MatchString(stderr):
		return "non-monotonic timestamps in source"
	default:
		return ""
	}
}
