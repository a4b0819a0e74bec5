package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// toolName is the probe binary invoked. Overridable in tests and, at
// startup, from the host's configured ffprobe_bin.
var toolName = "ffprobe"

// SetToolName overrides the probe binary invoked by Probe. Call once at
// process startup before any job reaches the probing phase.
func SetToolName(name string) {
	if name != "" {
		toolName = name
	}
}

// Probe normalizes path, runs the probe tool against it, and parses the
// result into a ProbeSummary. A single JSON call covers format and stream
// data in one subprocess invocation.
func Probe(ctx context.Context, path string) (ProbeSummary, error) {
	normalized := normalizePath(path)

	cmd := exec.CommandContext(ctx, toolName,
		"-v", "error",
		"-show_entries",
		"format=duration,bit_rate:"+
			"stream=index,codec_name,codec_type,avg_frame_rate,width,height,channels,"+
			"color_primaries,color_transfer,color_space:stream_disposition=attached_pic",
		"-print_format", "json",
		normalized,
	)

	out, err := cmd.Output()
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return ProbeSummary{}, ErrMissing
		}
		return ProbeSummary{}, fmt.Errorf("%w: %v", ErrProcess, err)
	}

	summary, err := ParseJSON(out)
	if err != nil {
		return ProbeSummary{}, err
	}
	summary.Path = normalized
	return summary, nil
}

// ParseJSON converts raw ffprobe JSON output into a ProbeSummary. It runs
// no subprocess, so captured JSON can be parsed without a real ffprobe
// binary on PATH.
func ParseJSON(data []byte) (ProbeSummary, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return ProbeSummary{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return buildSummary(&raw), nil
}

// normalizePath converts a file:// URL to a filesystem path if needed and
// applies Unicode NFC normalization, since source filenames may arrive
// pre-decomposed (NFD) from some filesystems or GUI file pickers.
func normalizePath(path string) string {
	p := path
	if strings.HasPrefix(p, "file://") {
		if u, err := url.Parse(p); err == nil {
			p = u.Path
		}
	}
	return norm.NFC.String(p)
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecName      string         `json:"codec_name"`
	CodecType      string         `json:"codec_type"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	AvgFrameRate   string         `json:"avg_frame_rate"`
	ColorPrimaries string         `json:"color_primaries"`
	ColorTransfer  string         `json:"color_transfer"`
	ColorSpace     string         `json:"color_space"`
	Channels       int            `json:"channels"`
	Disposition    map[string]int `json:"disposition"`
}

// --- Conversion from wire types to domain types ---

var bitmapSubCodecs = map[string]bool{
	"hdmv_pgs_subtitle": true,
	"dvd_subtitle":      true,
	"dvb_subtitle":      true,
	"xsub":              true,
}

func buildSummary(raw *ffprobeOutput) ProbeSummary {
	s := ProbeSummary{
		DurationSec: parseFloat(raw.Format.Duration),
		BitrateBps:  int64(parseFloat(raw.Format.BitRate)),
	}

	for i := range raw.Streams {
		st := &raw.Streams[i]
		switch st.CodecType {
		case "video":
			if st.Disposition["attached_pic"] == 1 || s.HasVideo {
				continue
			}
			s.HasVideo = true
			s.Width = st.Width
			s.Height = st.Height
			s.FPS = parseFrameRate(st.AvgFrameRate)
			s.VCodec = strings.ToLower(st.CodecName)
			s.Color = ColorMeta{
				Primaries: st.ColorPrimaries,
				Transfer:  st.ColorTransfer,
				Space:     st.ColorSpace,
			}
		case "audio":
			if s.HasAudio {
				continue
			}
			s.HasAudio = true
			s.ACodec = strings.ToLower(st.CodecName)
			s.Channels = st.Channels
		case "subtitle":
			if bitmapSubCodecs[st.CodecName] {
				s.HasImageSubs = true
			} else {
				s.HasTextSubs = true
			}
		}
	}
	return s
}

// --- Numeric parsing helpers (ffprobe returns numbers as strings) ---

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

// parseFrameRate converts ffprobe's "num/den" avg_frame_rate into a float.
func parseFrameRate(s string) float64 {
	parts := strings.SplitN(strings.TrimSpace(s), "/", 2)
	if len(parts) != 2 {
		return parseFloat(s)
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
