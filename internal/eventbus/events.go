package eventbus

import (
	"github.com/backmassage/mxcore/internal/errs"
	"github.com/backmassage/mxcore/internal/job"
)

// Topic names one of the bus's three channels.
type Topic string

const (
	TopicProgress   Topic = "progress"
	TopicStderr     Topic = "stderr"
	TopicCompletion Topic = "completion"
)

// Completion is the payload of a TopicCompletion event.
type Completion struct {
	Success   bool
	Cancelled bool
	ExitCode  int
	Code      errs.Code
	Message   string
}

// Event is the envelope delivered to subscribers. Only the field matching
// Topic is populated.
type Event struct {
	Topic Topic
	JobID job.ID

	Progress   job.Progress
	Line       string
	Completion Completion
}
