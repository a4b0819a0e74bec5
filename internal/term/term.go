// Package term provides terminal detection used to decide whether the
// console logger should emit ANSI color: the color table itself now lives
// inside zerolog's ConsoleWriter, so this package's only remaining job is
// answering "should colors be on," given the configured mode, the NO_COLOR
// convention (https://no-color.org), and whether stdout is actually a TTY.
package term

import (
	"os"
	"strings"

	"github.com/backmassage/mxcore/internal/config"
)

// ColorEnabled resolves mode against the environment and reports whether
// the console writer should colorize its output.
func ColorEnabled(mode config.ColorMode) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default: // ColorAuto
		return IsTerminal(os.Stdout) &&
			os.Getenv("NO_COLOR") == "" &&
			strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
}

// IsTerminal reports whether f is attached to a TTY (character device).
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
