package planner

import (
	"strconv"
	"strings"

	"github.com/backmassage/mxcore/internal/capability"
	"github.com/backmassage/mxcore/internal/catalog"
	"github.com/backmassage/mxcore/internal/probe"
)

// gifFPSMin/Max and gifWidthMin/Max are the clamp bounds for the animated
// GIF filter chain.
const (
	gifFPSDefault = 15
	gifFPSMin     = 5
	gifFPSMax     = 50
	gifWidthMin   = 160
	gifWidthMax   = 1280
	gifMaxSeconds = 30
)

// buildVideoPlan runs the video sub-planner, appending tokens/notes/warnings
// to b and recording the resolved action for later remuxOnly/exclusive
// computation.
func buildVideoPlan(b *builder, preset catalog.Preset, rule catalog.ContainerRule, summary probe.ProbeSummary, caps capability.Snapshot, tier catalog.Tier) {
	codec := preset.Video.Codec

	switch {
	case codec == catalog.VCodecNone:
		b.videoAction = ActionDrop
		b.videoTokens = append(b.videoTokens, "-vn")
		return

	case !summary.HasVideo:
		b.videoAction = ActionDrop
		b.videoTokens = append(b.videoTokens, "-vn")
		b.warn("source has no video stream; dropping video")
		return

	case codec == catalog.VCodecGIF:
		buildGIFPlan(b, summary)
		return

	case preset.MediaKind == catalog.KindImage:
		buildStillImagePlan(b, codec)
		return

	case codec == catalog.VCodecCopy:
		b.videoAction = ActionCopy
		b.videoTokens = append(b.videoTokens, "-map", "0:v:0?", "-c:v", "copy")
		return

	case strings.EqualFold(summary.VCodec, string(codec)):
		b.videoAction = ActionCopy
		b.videoTokens = append(b.videoTokens, "-map", "0:v:0?", "-c:v", "copy")
		b.note("source video is already %s; stream copy", codec)
		return
	}

	b.videoAction = ActionTranscode
	encoder, present := selectVideoEncoder(string(codec), caps)
	if !present {
		b.warn("encoder %q for codec %s not reported by toolchain; attempting anyway", encoder, codec)
	}
	b.videoTokens = append(b.videoTokens, "-map", "0:v:0?", "-c:v", encoder)
	if isHardwareEncoder(encoder) {
		b.note("using hardware encoder %s", encoder)
	}

	appendTierArgs(b, preset, codec, tier)

	if preset.Video.CopyColorMetadata && !summary.Color.Empty() {
		if summary.Color.Transfer != "" {
			b.videoTokens = append(b.videoTokens, "-color_trc", summary.Color.Transfer)
		}
		if summary.Color.Primaries != "" {
			b.videoTokens = append(b.videoTokens, "-color_primaries", summary.Color.Primaries)
		}
		if summary.Color.Space != "" {
			b.videoTokens = append(b.videoTokens, "-colorspace", summary.Color.Space)
		}
	}
}

// appendTierArgs emits -b:v/-maxrate/-bufsize/-crf/-profile:v for the
// resolved tier, handling ProRes's profile-name normalization specially.
func appendTierArgs(b *builder, preset catalog.Preset, codec catalog.VCodec, tier catalog.Tier) {
	resolved, usedFallback := resolveTier(preset, tier)
	if usedFallback {
		b.note("tier %q unavailable for preset %s; using %q", tier, preset.ID, resolved)
	}
	defaults, ok := preset.Video.Tiers[resolved]
	if !ok {
		return
	}

	if defaults.Bitrate != "" {
		b.videoTokens = append(b.videoTokens, "-b:v", defaults.Bitrate)
	}
	if defaults.MaxRate != "" {
		b.videoTokens = append(b.videoTokens, "-maxrate", defaults.MaxRate)
	}
	if defaults.Bufsize != "" {
		b.videoTokens = append(b.videoTokens, "-bufsize", defaults.Bufsize)
	}
	if defaults.CRF != "" {
		b.videoTokens = append(b.videoTokens, "-crf", defaults.CRF)
	}
	if defaults.Profile != "" {
		profile := defaults.Profile
		if codec == catalog.VCodecProRes {
			profile = normalizeProResProfile(profile)
		}
		b.videoTokens = append(b.videoTokens, "-profile:v", profile)
	}
}

// normalizeProResProfile canonicalizes the ProRes profile aliases the
// catalog's YAML may spell either way.
func normalizeProResProfile(profile string) string {
	switch strings.ToLower(profile) {
	case "422", "standard":
		return "standard"
	case "422hq", "hq":
		return "hq"
	case "422lt", "lt":
		return "lt"
	case "4444", "4444xq", "proxy":
		return strings.ToLower(profile)
	default:
		return profile
	}
}

// buildGIFPlan emits the animated-GIF filter chain, clamping fps and width
// to sane bounds and warning on overlong sources.
func buildGIFPlan(b *builder, summary probe.ProbeSummary) {
	b.videoAction = ActionTranscode

	fps := int(summary.FPS)
	if fps <= 0 {
		fps = gifFPSDefault
	}
	fps = clampInt(fps, gifFPSMin, gifFPSMax)

	width := summary.Width
	if width <= 0 {
		width = gifWidthMax
	}
	width = clampInt(width, gifWidthMin, gifWidthMax)
	if width%2 != 0 {
		width--
	}

	chain := "fps=" + strconv.Itoa(fps) +
		",scale=" + strconv.Itoa(width) + ":-2:flags=lanczos,split[s0][s1]" +
		";[s0]palettegen[p];[s1][p]paletteuse=dither=bayer:bayer_scale=3"

	b.filterTokens = append(b.filterTokens, "-filter_complex", chain)
	b.videoTokens = append(b.videoTokens, "-map", "0:v:0?")

	if summary.DurationSec > gifMaxSeconds {
		b.warn("source duration %.0fs exceeds %ds; GIF output will be large", summary.DurationSec, gifMaxSeconds)
	}
}

// buildStillImagePlan emits the single-frame extraction tokens for PNG/JPEG/
// WebP outputs, with codec-specific quality flags. The muxer itself (-f
// image2 or -f webp) comes from the container group.
func buildStillImagePlan(b *builder, codec catalog.VCodec) {
	b.videoAction = ActionTranscode
	b.videoTokens = append(b.videoTokens, "-frames:v", "1")

	switch codec {
	case catalog.VCodecMJPEG:
		b.videoTokens = append(b.videoTokens, "-c:v", "mjpeg", "-q:v", "2")
	case catalog.VCodecWebP:
		b.videoTokens = append(b.videoTokens, "-c:v", "libwebp", "-quality", "90")
	default:
		b.videoTokens = append(b.videoTokens, "-c:v", string(codec))
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
