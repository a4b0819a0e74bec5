// Package logging provides the leveled logger every mxcore command shares:
// Info/Warn/Error/Success/Render/Debug, plus an Outlier method for
// planner-warning and analysis output, backed by zerolog's structured,
// level-aware console writer.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/backmassage/mxcore/internal/config"
	"github.com/backmassage/mxcore/internal/term"
)

// Logger wraps a configured zerolog.Logger with the level vocabulary the
// rest of mxcore calls against. Safe for concurrent use: zerolog's writers
// are themselves safe for concurrent use, and Close only touches the file
// handle this Logger opened.
type Logger struct {
	zl   zerolog.Logger
	file *os.File
}

// NewLogger builds a Logger from cfg: a colorized console writer (color
// resolved via term.ColorEnabled) plus, when cfg.LogFile is set, a plain
// JSON sink opened in append mode. The caller must call Close when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		NoColor:    !term.ColorEnabled(cfg.ColorMode),
		TimeFormat: "15:04:05",
	}

	l := &Logger{}
	var writer io.Writer = console

	if cfg.LogFile != "" {
		dir := filepath.Dir(cfg.LogFile)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
		writer = zerolog.MultiLevelWriter(console, f)
	}

	l.zl = zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return l, nil
}

// Close closes the log file, if one was opened.
func (l *Logger) Close() error {
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Zerolog exposes the underlying zerolog.Logger for packages (the runner,
// the scheduler) that want structured fields rather than a printf string.
func (l *Logger) Zerolog() *zerolog.Logger { return &l.zl }

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

// Success logs a successful-operation message, distinguished from a plain
// Info by a "success" field a structured consumer can filter on.
func (l *Logger) Success(format string, args ...interface{}) {
	l.zl.Info().Bool("success", true).Msgf(format, args...)
}

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

// Error logs an error.
func (l *Logger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// Render logs a render-plan message: the planner's chosen command shown to
// the user before a job starts running.
func (l *Logger) Render(format string, args ...interface{}) {
	l.zl.Info().Str("kind", "render").Msgf(format, args...)
}

// Outlier logs a bitrate-outlier / planner-warning style message. It is
// mapped to zerolog's Warn severity with a distinguishing field so a
// structured log consumer can filter planner diagnostics from ordinary
// operational warnings.
func (l *Logger) Outlier(format string, args ...interface{}) {
	l.zl.Warn().Str("kind", "outlier").Msgf(format, args...)
}

// Debug logs a debug-level message, gated on verbose so call sites don't
// need their own conditional.
func (l *Logger) Debug(verbose bool, format string, args ...interface{}) {
	if !verbose {
		return
	}
	l.zl.Debug().Msgf(format, args...)
}
