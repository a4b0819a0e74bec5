package planner

import (
	"github.com/backmassage/mxcore/internal/catalog"
	"github.com/backmassage/mxcore/internal/probe"
)

// bitmapSubtitleCodecs lists the FFmpeg codec names the argument builder
// excludes by -map -0:s:m:codec:<name>? when downgrading a convert-mode
// preset that found image-based subtitle streams.
var bitmapSubtitleCodecs = []string{"hdmv_pgs_subtitle", "dvd_subtitle", "dvb_subtitle", "xsub"}

// buildSubtitlePlan runs the subtitle sub-planner against the preset's
// declared mode and the target container's subtitle acceptance rule.
func buildSubtitlePlan(b *builder, preset catalog.Preset, rule catalog.ContainerRule, summary probe.ProbeSummary) {
	switch preset.Subtitle.Mode {
	case catalog.SubtitleKeep:
		buildKeepSubtitlePlan(b, rule, summary)
	case catalog.SubtitleConvert:
		buildConvertSubtitlePlan(b, rule, summary)
	case catalog.SubtitleBurn:
		b.subtitleTokens = append(b.subtitleTokens, "-sn")
		b.warn("subtitle burn-in requested; execution layer must inject a subtitles= filter")
	default: // SubtitleDrop, or unset
		b.subtitleTokens = append(b.subtitleTokens, "-sn")
	}
}

func buildKeepSubtitlePlan(b *builder, rule catalog.ContainerRule, summary probe.ProbeSummary) {
	b.subtitleTokens = append(b.subtitleTokens, "-map", "0:s?", "-c:s", "copy")
	if summary.HasTextSubs && !rule.SubtitleTextOK {
		b.warn("container does not accept text subtitles; copy may fail at mux time")
	}
	if summary.HasImageSubs && !rule.SubtitleImageOK {
		b.warn("container does not accept image subtitles; copy may fail at mux time")
	}
}

func buildConvertSubtitlePlan(b *builder, rule catalog.ContainerRule, summary probe.ProbeSummary) {
	if !summary.HasTextSubs && !summary.HasImageSubs {
		b.subtitleTokens = append(b.subtitleTokens, "-sn")
		return
	}

	if !summary.HasTextSubs {
		b.subtitleTokens = append(b.subtitleTokens, "-sn")
		b.warn("only image-based subtitles present; cannot convert to mov_text, dropping")
		return
	}
	if !rule.SubtitleTextOK {
		b.subtitleTokens = append(b.subtitleTokens, "-sn")
		b.warn("container does not accept mov_text subtitles; dropping")
		return
	}

	b.subtitleTokens = append(b.subtitleTokens, "-map", "0:s?", "-c:s", "mov_text")
	if summary.HasImageSubs {
		for _, codec := range bitmapSubtitleCodecs {
			b.subtitleTokens = append(b.subtitleTokens, "-map", "-0:s:m:codec:"+codec+"?")
		}
		b.note("dropping image-based subtitle streams incompatible with mov_text")
	}
}
