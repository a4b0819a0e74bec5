package runner

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/backmassage/mxcore/internal/job"
)

// progressReader accumulates the key=value lines FFmpeg writes to the pipe
// given by "-progress pipe:2" and turns each completed block (terminated by
// a "progress=" line) into a job.Progress against a known source duration.
type progressReader struct {
	durationSec float64

	outTimeUs float64
	fps       float64
	speed     float64
}

func newProgressReader(durationSec float64) *progressReader {
	return &progressReader{durationSec: durationSec}
}

// feed parses one "-progress" line, returning a populated Progress and true
// once a "progress=continue"/"progress=end" terminator completes a block.
func (p *progressReader) feed(line string) (job.Progress, bool) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return job.Progress{}, false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	switch key {
	case "out_time_us":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			p.outTimeUs = v
		}
	case "out_time_ms":
		// older ffmpeg builds emit out_time_ms but in microsecond units
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			p.outTimeUs = v
		}
	case "fps":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			p.fps = v
		}
	case "speed":
		v := strings.TrimSuffix(value, "x")
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			p.speed = f
		}
	case "progress":
		return p.snapshot(), true
	}
	return job.Progress{}, false
}

func (p *progressReader) snapshot() job.Progress {
	processed := p.outTimeUs / 1_000_000

	var ratio, eta float64
	if p.durationSec > 0 {
		ratio = processed / p.durationSec
		if ratio > 1 {
			ratio = 1
		}
		if p.speed > 0 {
			remaining := p.durationSec - processed
			if remaining < 0 {
				remaining = 0
			}
			eta = remaining / p.speed
		}
	}

	return job.Progress{
		ProcessedSeconds: processed,
		FPS:              p.fps,
		Speed:            p.speed,
		Ratio:            ratio,
		ETASeconds:       eta,
	}
}

// scanProgress reads r line by line, invoking onProgress for every completed
// "-progress" block and onStderr for every other line (the stream also
// carries FFmpeg's ordinary diagnostic stderr output, interleaved).
func scanProgress(r io.Reader, pr *progressReader, onProgress func(job.Progress), onStderr func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "=") && isProgressKey(line) {
			if snap, done := pr.feed(line); done {
				onProgress(snap)
			}
			continue
		}
		onStderr(line)
	}
}

var progressKeys = map[string]bool{
	"frame": true, "fps": true, "stream_0_0_q": true, "bitrate": true,
	"total_size": true, "out_time_us": true, "out_time_ms": true,
	"out_time": true, "dup_frames": true, "drop_frames": true,
	"speed": true, "progress": true,
}

func isProgressKey(line string) bool {
	key, _, ok := strings.Cut(line, "=")
	if !ok {
		return false
	}
	return progressKeys[strings.TrimSpace(key)]
}
