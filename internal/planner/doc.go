// Package planner decides, for one probed source file and one resolved
// preset, whether each stream is copied or transcoded, and builds the
// complete FFmpeg argument vector plus human-readable notes and warnings.
// It is a pure function of its inputs: no I/O, no subprocess, no clock.
//
// Files:
//   - types.go:      Decision and the stream-action enums it is built from
//   - tier.go:        tier resolution with the balanced→fast→high fallback
//   - encoder.go:     hardware-preferring encoder selection strategy
//   - video.go:       video sub-planner, including GIF and still-image modes
//   - audio.go:       audio sub-planner
//   - subtitle.go:    subtitle sub-planner
//   - estimation.go:  informational output-size estimate note
//   - planner.go:     Plan entry point, wires the sub-planners together
package planner
