package planner

import (
	"strconv"
	"strings"

	"github.com/backmassage/mxcore/internal/catalog"
	"github.com/backmassage/mxcore/internal/probe"
)

// estimateOutputRange appends an informational note describing the rough
// output size range for a transcode, from a CRF -> expected output/input
// ratio curve adjusted for source codec and resolution.
func estimateOutputRange(b *builder, preset catalog.Preset, summary probe.ProbeSummary, tier catalog.Tier) {
	if b.videoAction != ActionTranscode {
		return
	}
	resolved, _ := resolveTier(preset, tier)
	defaults, ok := preset.Video.Tiers[resolved]
	if !ok || defaults.CRF == "" {
		return
	}
	crf, err := strconv.Atoi(defaults.CRF)
	if err != nil {
		return
	}

	inputKbps := estimateInputKbps(summary)
	if inputKbps <= 0 {
		return
	}

	ratio := crfRatioPerMille(crf)
	ratio += codecBias(summary.VCodec)
	ratio += resolutionBias(summary.Width * summary.Height)
	ratio = clampInt(ratio, 220, 1050)

	lowRatio := ratio * 75 / 100
	highRatio := ratio * 145 / 100
	low := (inputKbps*lowRatio + 500) / 1000
	high := (inputKbps*highRatio + 500) / 1000

	b.note("estimated output bitrate range: %d-%dk", low, high)
}

// estimateInputKbps converts the probed container bitrate to kbps. Zero
// means unknown, in which case the caller skips the estimate entirely
// rather than emit a misleading range.
func estimateInputKbps(summary probe.ProbeSummary) int {
	if summary.BitrateBps <= 0 {
		return 0
	}
	return int((summary.BitrateBps + 500) / 1000)
}

// crfRatioPerMille maps CRF to an expected output/input bitrate ratio in
// per-mille: lower CRF (higher quality) keeps more of the source bitrate.
func crfRatioPerMille(crf int) int {
	switch {
	case crf <= 16:
		return 900
	case crf == 17:
		return 820
	case crf == 18:
		return 740
	case crf == 19:
		return 660
	case crf == 20:
		return 590
	case crf == 21:
		return 520
	case crf == 22:
		return 460
	case crf == 23:
		return 410
	case crf == 24:
		return 360
	case crf == 25:
		return 320
	case crf == 26:
		return 290
	case crf == 27:
		return 260
	default:
		return 230
	}
}

func codecBias(codec string) int {
	switch strings.ToLower(codec) {
	case "h264", "avc", "avc1", "hevc", "h265", "vp9", "av1":
		return 110
	case "mpeg2video", "mpeg4", "wmv3", "vc1":
		return -60
	default:
		return 0
	}
}

func resolutionBias(pixels int) int {
	switch {
	case pixels <= 0:
		return 0
	case pixels <= 854*480:
		return 80
	case pixels <= 1280*720:
		return 40
	case pixels >= 3840*2160:
		return -40
	default:
		return 0
	}
}
