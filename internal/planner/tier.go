package planner

import "github.com/backmassage/mxcore/internal/catalog"

// resolveTier returns the tier to actually use for a preset's video spec,
// falling back in order balanced -> fast -> high when the requested tier
// has no entry. The second return value reports whether a fallback fired.
func resolveTier(preset catalog.Preset, requested catalog.Tier) (catalog.Tier, bool) {
	if len(preset.Video.Tiers) == 0 {
		// Codec has no tiered knobs at all (copy, none, prores profile-only,
		// stills); the requested tier is used as a label with no fallback.
		return requested, false
	}
	return catalog.ResolveTier(preset.Video.Tiers, requested)
}

// resolveAudioTier mirrors resolveTier for the audio spec's bitrate table.
func resolveAudioTier(preset catalog.Preset, tier catalog.Tier) (catalog.AudioTierDefaults, bool) {
	if d, ok := preset.Audio.Tiers[tier]; ok {
		return d, true
	}
	for _, t := range []catalog.Tier{catalog.TierBalanced, catalog.TierFast, catalog.TierHigh} {
		if d, ok := preset.Audio.Tiers[t]; ok {
			return d, true
		}
	}
	return catalog.AudioTierDefaults{}, false
}
