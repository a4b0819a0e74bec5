package catalog

// Container is an output/source container format.
type Container string

const (
	ContainerMP4  Container = "mp4"
	ContainerMOV  Container = "mov"
	ContainerM4A  Container = "m4a"
	ContainerMKV  Container = "mkv"
	ContainerWebM Container = "webm"
	ContainerGIF  Container = "gif"
	ContainerMP3  Container = "mp3"
	ContainerFLAC Container = "flac"
	ContainerWAV  Container = "wav"
	ContainerPNG  Container = "png"
	ContainerJPG  Container = "jpg"
	ContainerWebP Container = "webp"
)

// MediaKind classifies what a preset produces.
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
	KindImage MediaKind = "image"
)

// Tier selects a quality profile.
type Tier string

const (
	TierFast     Tier = "fast"
	TierBalanced Tier = "balanced"
	TierHigh     Tier = "high"
)

// tierFallbackOrder is consulted by ResolveTier when the requested tier is
// absent from a preset's per-tier map.
var tierFallbackOrder = []Tier{TierBalanced, TierFast, TierHigh}

// VCodec is a closed video codec enumeration. "copy" and "none" are
// sentinels meaning stream-copy and stream-strip respectively.
type VCodec string

const (
	VCodecCopy   VCodec = "copy"
	VCodecNone   VCodec = "none"
	VCodecH264   VCodec = "h264"
	VCodecHEVC   VCodec = "hevc"
	VCodecVP9    VCodec = "vp9"
	VCodecAV1    VCodec = "av1"
	VCodecProRes VCodec = "prores"
	VCodecGIF    VCodec = "gif"
	VCodecMJPEG  VCodec = "mjpeg"
	VCodecWebP   VCodec = "webp"
)

// ACodec is a closed audio codec enumeration. "copy" and "none" are
// sentinels meaning stream-copy and stream-strip respectively.
type ACodec string

const (
	ACodecCopy ACodec = "copy"
	ACodecNone ACodec = "none"
	ACodecAAC  ACodec = "aac"
	ACodecMP3  ACodec = "mp3"
	ACodecOpus ACodec = "opus"
	ACodecFLAC ACodec = "flac"
	ACodecPCM  ACodec = "pcm_s16le"
)

// SubtitleMode selects how a preset treats subtitle streams.
type SubtitleMode string

const (
	SubtitleKeep    SubtitleMode = "keep"
	SubtitleConvert SubtitleMode = "convert"
	SubtitleBurn    SubtitleMode = "burn"
	SubtitleDrop    SubtitleMode = "drop"
)

// VideoTierDefaults holds the per-tier bitrate/quality knobs for a video
// codec. Fields are left empty when not applicable to that codec/tier.
type VideoTierDefaults struct {
	Bitrate string `yaml:"bitrate"`
	MaxRate string `yaml:"maxrate"`
	Bufsize string `yaml:"bufsize"`
	CRF     string `yaml:"crf"`
	Profile string `yaml:"profile"`
}

// VideoSpec is a preset's video handling rule.
type VideoSpec struct {
	Codec             VCodec                       `yaml:"codec"`
	Tiers             map[Tier]VideoTierDefaults    `yaml:"tiers"`
	CopyColorMetadata bool                          `yaml:"copyColorMetadata"`
}

// AudioTierDefaults holds the per-tier bitrate for an audio codec.
type AudioTierDefaults struct {
	Bitrate string `yaml:"bitrate"`
}

// AudioSpec is a preset's audio handling rule.
type AudioSpec struct {
	Codec          ACodec                      `yaml:"codec"`
	DefaultBitrate string                      `yaml:"defaultBitrate"`
	Tiers          map[Tier]AudioTierDefaults  `yaml:"tiers"`
	StereoOnly     bool                        `yaml:"stereoOnly"`
}

// SubtitleSpec is a preset's subtitle handling rule.
type SubtitleSpec struct {
	Mode SubtitleMode `yaml:"mode"`
}

// PresetFlags carries boolean preset-level behavior switches.
type PresetFlags struct {
	RemuxOnly    bool `yaml:"remuxOnly"`
	Experimental bool `yaml:"experimental"`
}

// Preset is an immutable, data-authored conversion profile.
type Preset struct {
	ID               string       `yaml:"id"`
	Label            string       `yaml:"label"`
	Container        Container    `yaml:"container"`
	MediaKind        MediaKind    `yaml:"mediaKind"`
	SourceContainers []Container  `yaml:"sourceContainers"`
	Video            VideoSpec    `yaml:"video"`
	Audio            AudioSpec    `yaml:"audio"`
	Subtitle         SubtitleSpec `yaml:"subtitle"`
	Flags            PresetFlags  `yaml:"flags"`
	OutputExtension  string       `yaml:"outputExtension"`
}

// AcceptsSource reports whether src is an accepted input container for this
// preset. An empty SourceContainers list means "any".
func (p Preset) AcceptsSource(src Container) bool {
	if len(p.SourceContainers) == 0 {
		return true
	}
	for _, c := range p.SourceContainers {
		if c == src {
			return true
		}
	}
	return false
}

// Extension returns the file extension this preset's output should carry:
// the explicit override if set, else the container name itself.
func (p Preset) Extension() string {
	if p.OutputExtension != "" {
		return p.OutputExtension
	}
	return string(p.Container)
}

// ContainerRule describes what a container format accepts.
type ContainerRule struct {
	Container         Container `yaml:"container"`
	Muxer             string    `yaml:"muxer"`
	AllowedVideo      []string  `yaml:"allowedVideo"` // "any" or explicit codec names
	AllowedAudio      []string  `yaml:"allowedAudio"`
	SubtitleTextOK    bool      `yaml:"subtitleTextOK"`
	SubtitleImageOK   bool      `yaml:"subtitleImageOK"`
	RequiresFaststart bool      `yaml:"requiresFaststart"`
}

// AllowsVideo reports whether codec is acceptable in this container.
func (r ContainerRule) AllowsVideo(codec string) bool {
	return allows(r.AllowedVideo, codec)
}

// AllowsAudio reports whether codec is acceptable in this container.
func (r ContainerRule) AllowsAudio(codec string) bool {
	return allows(r.AllowedAudio, codec)
}

func allows(list []string, codec string) bool {
	for _, c := range list {
		if c == "any" || c == codec {
			return true
		}
	}
	return false
}

// ResolveTier returns the tier to actually use plus whether a fallback was
// applied, given the set of tiers a preset's video spec defines.
func ResolveTier(available map[Tier]VideoTierDefaults, requested Tier) (Tier, bool) {
	if _, ok := available[requested]; ok {
		return requested, false
	}
	for _, t := range tierFallbackOrder {
		if _, ok := available[t]; ok {
			return t, true
		}
	}
	return requested, true
}
