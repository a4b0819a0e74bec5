package planner

import (
	"strings"

	"github.com/backmassage/mxcore/internal/capability"
	"github.com/backmassage/mxcore/internal/catalog"
	"github.com/backmassage/mxcore/internal/probe"
)

// progressArgs is always prepended to the argument vector so the runner can
// parse machine-readable progress from stderr.
var progressArgs = []string{"-progress", "pipe:2", "-nostats"}

// Plan produces a Decision from a resolved preset, its container's
// compatibility rule, a probed source, a capability snapshot, and the
// requested tier. It performs no I/O and has no side effects: given
// identical inputs it always returns an identical token vector.
func Plan(preset catalog.Preset, rule catalog.ContainerRule, summary probe.ProbeSummary, caps capability.Snapshot, requestedTier catalog.Tier) Decision {
	b := &builder{}

	resolvedTier, usedFallback := resolveTier(preset, requestedTier)

	buildVideoPlan(b, preset, rule, summary, caps, resolvedTier)
	buildAudioPlan(b, preset, summary, caps, resolvedTier)
	buildSubtitlePlan(b, preset, rule, summary)
	estimateOutputRange(b, preset, summary, resolvedTier)

	tokens := buildTokenVector(b, preset, rule)

	remuxOnly := b.videoAction != ActionTranscode && b.audioAction != ActionTranscode &&
		(b.videoAction == ActionCopy || b.videoAction == ActionDrop) &&
		(b.audioAction == ActionCopy || b.audioAction == ActionDrop)

	exclusive := exclusiveVideoCodecs[preset.Video.Codec] && !remuxOnly

	return Decision{
		PresetID:         preset.ID,
		Tier:             resolvedTier,
		VideoAction:      b.videoAction,
		AudioAction:      b.audioAction,
		Tokens:           tokens,
		Notes:            b.notes,
		Warnings:         b.warnings,
		UsedFallbackTier: usedFallback,
		RemuxOnly:        remuxOnly,
		Exclusive:        exclusive,
	}
}

// buildTokenVector assembles the deterministic final argument list: the
// progress prefix, then video/audio/subtitle/container groups in that
// fixed order, then any filter groups (GIF's -filter_complex).
func buildTokenVector(b *builder, preset catalog.Preset, rule catalog.ContainerRule) []string {
	var tokens []string
	tokens = append(tokens, progressArgs...)
	tokens = append(tokens, b.videoTokens...)
	tokens = append(tokens, b.audioTokens...)
	tokens = append(tokens, b.subtitleTokens...)
	tokens = append(tokens, buildContainerTokens(preset, rule)...)
	tokens = append(tokens, b.filterTokens...)
	return tokens
}

// buildContainerTokens finalizes container-level flags: faststart when the
// rule requires it, and an explicit muxer when one is defined.
func buildContainerTokens(preset catalog.Preset, rule catalog.ContainerRule) []string {
	var tokens []string
	if rule.RequiresFaststart {
		tokens = append(tokens, "-movflags", "+faststart")
	}
	if rule.Muxer != "" {
		tokens = append(tokens, "-f", rule.Muxer)
	}
	return tokens
}

// ValidateSource reports whether preset accepts the probed source's
// inferred container, case-insensitively against preset.SourceContainers.
func ValidateSource(preset catalog.Preset, sourceContainer catalog.Container) bool {
	return preset.AcceptsSource(catalog.Container(strings.ToLower(string(sourceContainer))))
}
