package capability

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const encodersOutput = `Encoders:
 V..... = Video
 A..... = Audio
 S..... = Subtitle
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10
 V....D h264_nvenc           NVIDIA NVENC H.264 encoder (codec h264)
 A....D aac                  AAC (Advanced Audio Coding)
 A....D libopus              libopus Opus (codec opus)
 S..... mov_text             3GPP Timed Text subtitle
`

const formatsOutput = `File formats:
 D. = Demuxing supported
 .E = Muxing supported
 --
 DE mov,mp4,m4a,3gp,3g2,mj2 QuickTime / MOV
  E webm            WebM
 D  matroska,webm   Matroska / WebM
 DE gif             CompuServe Graphics Interchange Format (GIF)
`

const filtersOutput = `Filters:
  T.. = Timeline support
 ... scale             V->V       Scale the input video size and/or convert the image format.
 ... palettegen        V->V       Find the optimal palette for a given stream.
 ... paletteuse        VV->V      Use a palette to downsample an input video stream.
`

func TestParseEncoders(t *testing.T) {
	snap := empty()
	parseEncoders(encodersOutput, snap)

	assert.True(t, snap.HasVideoEncoder("libx264"))
	assert.True(t, snap.HasVideoEncoder("h264_nvenc"))
	assert.True(t, snap.HasAudioEncoder("aac"))
	assert.True(t, snap.HasAudioEncoder("libopus"))
	assert.False(t, snap.HasVideoEncoder("mov_text"), "subtitle encoders are not video encoders")
	assert.False(t, snap.HasVideoEncoder("aac"))
}

func TestParseMuxers(t *testing.T) {
	snap := empty()
	parseMuxers(formatsOutput, snap)

	assert.True(t, snap.HasMuxer("mp4"), "comma-joined names are split")
	assert.True(t, snap.HasMuxer("mov"))
	assert.True(t, snap.HasMuxer("webm"))
	assert.True(t, snap.HasMuxer("gif"))
	assert.False(t, snap.HasMuxer("matroska"), "demux-only entries are skipped")
}

func TestParseFilters(t *testing.T) {
	snap := empty()
	parseFilters(filtersOutput, snap)

	_, ok := snap.Filters["scale"]
	assert.True(t, ok)
	_, ok = snap.Filters["palettegen"]
	assert.True(t, ok)
}

func TestLoadMissingToolchainYieldsEmptySets(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "nonexistent-ffmpeg"))
	snap := r.Load(context.Background())

	assert.Empty(t, snap.VideoEncoders)
	assert.Empty(t, snap.AudioEncoders)
	assert.Empty(t, snap.Muxers)
	assert.Empty(t, snap.Filters)
}

func TestLoadIsMemoized(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "nonexistent-ffmpeg"))
	first := r.Load(context.Background())
	second := r.Load(context.Background())
	assert.Equal(t, first, second)
}

func TestNewRegistryDefaultsBinary(t *testing.T) {
	r := NewRegistry("")
	assert.Equal(t, "ffmpeg", r.ffmpegBin)
}
