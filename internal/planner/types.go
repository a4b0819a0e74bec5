package planner

import (
	"fmt"

	"github.com/backmassage/mxcore/internal/catalog"
)

// StreamAction is the per-stream disposition a sub-planner settles on.
type StreamAction string

const (
	ActionCopy      StreamAction = "copy"
	ActionTranscode StreamAction = "transcode"
	ActionDrop      StreamAction = "drop"
	ActionBurn      StreamAction = "burn"
)

// Decision is the output of Plan: a validated, capability-aware command
// plus the notes and warnings a UI log should surface.
type Decision struct {
	PresetID string
	Tier     catalog.Tier

	VideoAction StreamAction
	AudioAction StreamAction

	Tokens   []string
	Notes    []string
	Warnings []string

	UsedFallbackTier bool
	RemuxOnly        bool
	Exclusive        bool
}

// exclusiveVideoCodecs are expensive enough that the scheduler serializes
// them against every other running job.
var exclusiveVideoCodecs = map[catalog.VCodec]bool{
	catalog.VCodecAV1:    true,
	catalog.VCodecProRes: true,
}

// PresetExclusive reports whether preset's video codec belongs to the
// exclusive set, independent of any particular source (a cheap admission-time
// classification the scheduler uses for head-of-line ordering before a job
// has been probed and planned). The authoritative per-job value, which
// additionally accounts for remux-only decisions never being exclusive,
// is Decision.Exclusive, produced only once Plan has run.
func PresetExclusive(preset catalog.Preset) bool {
	return exclusiveVideoCodecs[preset.Video.Codec]
}

// builder accumulates tokens and prose while the sub-planners run; each
// build* step mutates the one shared value.
type builder struct {
	videoTokens     []string
	audioTokens     []string
	subtitleTokens  []string
	filterTokens    []string
	containerTokens []string

	notes    []string
	warnings []string

	videoAction StreamAction
	audioAction StreamAction
	allCopy     bool
}

func (b *builder) note(format string, args ...any) {
	b.notes = append(b.notes, fmt.Sprintf(format, args...))
}

func (b *builder) warn(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}
