package planner

import "github.com/backmassage/mxcore/internal/capability"

// hwSuffixes identify hardware-accelerated encoder names so the default
// selection strategy can prefer them over software fallbacks.
var hwSuffixes = []string{"videotoolbox", "_qsv", "_nvenc"}

// videoEncoderPreference lists, per codec, the encoder names to try in
// preference order. Hardware variants come first.
var videoEncoderPreference = map[string][]string{
	"h264":   {"h264_videotoolbox", "h264_qsv", "h264_nvenc", "libx264"},
	"hevc":   {"hevc_videotoolbox", "hevc_qsv", "hevc_nvenc", "libx265"},
	"vp9":    {"libvpx-vp9"},
	"av1":    {"av1_qsv", "av1_nvenc", "libaom-av1", "libsvtav1"},
	"prores": {"prores_ks", "prores"},
	"gif":    {"gif"},
	"mjpeg":  {"mjpeg"},
	"webp":   {"libwebp"},
}

// audioEncoderPreference maps each audio codec to its single FFmpeg
// encoder name. Audio has no hardware-variant ambiguity in this catalog.
var audioEncoderPreference = map[string][]string{
	"aac":       {"aac"},
	"mp3":       {"libmp3lame"},
	"opus":      {"libopus"},
	"flac":      {"flac"},
	"pcm_s16le": {"pcm_s16le"},
}

// selectVideoEncoder picks an encoder name for codec, preferring hardware
// variants present in the capability snapshot. If nothing in the
// preference list is reported as present, the first candidate is still
// returned (the planner emits the token and warns rather than refusing).
func selectVideoEncoder(codec string, caps capability.Snapshot) (name string, present bool) {
	return selectEncoder(videoEncoderPreference[codec], caps.HasVideoEncoder)
}

// selectAudioEncoder mirrors selectVideoEncoder for audio codecs.
func selectAudioEncoder(codec string, caps capability.Snapshot) (name string, present bool) {
	return selectEncoder(audioEncoderPreference[codec], caps.HasAudioEncoder)
}

// SelectVideoEncoder is the exported form of selectVideoEncoder. Diagnostics
// (internal/check) use it to report, per loaded preset, whether any
// preferred encoder for a codec is actually present, without duplicating
// the preference tables above.
func SelectVideoEncoder(codec string, caps capability.Snapshot) (name string, present bool) {
	return selectVideoEncoder(codec, caps)
}

// SelectAudioEncoder is the exported form of selectAudioEncoder.
func SelectAudioEncoder(codec string, caps capability.Snapshot) (name string, present bool) {
	return selectAudioEncoder(codec, caps)
}

func selectEncoder(candidates []string, has func(string) bool) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	for _, c := range candidates {
		if has(c) {
			return c, true
		}
	}
	return candidates[0], false
}

func isHardwareEncoder(name string) bool {
	for _, suf := range hwSuffixes {
		if len(name) >= len(suf) && name[len(name)-len(suf):] == suf {
			return true
		}
	}
	return false
}
