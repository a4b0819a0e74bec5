package planner

import (
	"strings"

	"github.com/backmassage/mxcore/internal/capability"
	"github.com/backmassage/mxcore/internal/catalog"
	"github.com/backmassage/mxcore/internal/probe"
)

// buildAudioPlan runs the audio sub-planner, mirroring the video rules:
// drop, copy when codecs already match, else transcode through the
// selected encoder with the resolved tier's bitrate.
func buildAudioPlan(b *builder, preset catalog.Preset, summary probe.ProbeSummary, caps capability.Snapshot, tier catalog.Tier) {
	codec := preset.Audio.Codec

	switch {
	case codec == catalog.ACodecNone:
		b.audioAction = ActionDrop
		b.audioTokens = append(b.audioTokens, "-an")
		return

	case !summary.HasAudio:
		b.audioAction = ActionDrop
		b.audioTokens = append(b.audioTokens, "-an")
		if codec != catalog.ACodecNone {
			b.note("source has no audio stream; dropping audio")
		}
		return

	case codec == catalog.ACodecCopy:
		b.audioAction = ActionCopy
		b.audioTokens = append(b.audioTokens, "-map", "0:a:0?", "-c:a", "copy")
		return

	case strings.EqualFold(summary.ACodec, string(codec)):
		b.audioAction = ActionCopy
		b.audioTokens = append(b.audioTokens, "-map", "0:a:0?", "-c:a", "copy")
		b.note("source audio is already %s; stream copy", codec)
		return
	}

	b.audioAction = ActionTranscode
	encoder, present := selectAudioEncoder(string(codec), caps)
	if !present {
		b.warn("encoder %q for codec %s not reported by toolchain; attempting anyway", encoder, codec)
	}
	b.audioTokens = append(b.audioTokens, "-map", "0:a:0?", "-c:a", encoder)

	bitrate := preset.Audio.DefaultBitrate
	if tierDefaults, ok := resolveAudioTier(preset, tier); ok && tierDefaults.Bitrate != "" {
		bitrate = tierDefaults.Bitrate
	}
	if bitrate != "" {
		b.audioTokens = append(b.audioTokens, "-b:a", bitrate)
	}

	if preset.Audio.StereoOnly {
		b.audioTokens = append(b.audioTokens, "-ac", "2")
	}
}
