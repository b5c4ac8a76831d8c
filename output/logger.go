package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Logger is the driver-side progress and statistics writer. It owns the
// per-run stage timings surfaced at --verbose (files discovered, parsed,
// analyzed, formatted) and the multi-file progress bar. Everything goes
// to stderr so stdout stays clean for formatter output.
type Logger struct {
	verbosity VerbosityLevel
	writer    io.Writer
	isTTY     bool
	started   time.Time
	stages    []StageDuration
	bar       *progressbar.ProgressBar
}

// StageDuration is one completed pipeline stage, in completion order.
type StageDuration struct {
	Name string
	Took time.Duration
}

// NewLogger writes to stderr with the given verbosity.
func NewLogger(verbosity VerbosityLevel) *Logger {
	return NewLoggerWithWriter(verbosity, os.Stderr)
}

// NewLoggerWithWriter writes to w; used by tests and by callers that
// redirect progress output.
func NewLoggerWithWriter(verbosity VerbosityLevel, w io.Writer) *Logger {
	return &Logger{
		verbosity: verbosity,
		writer:    w,
		isTTY:     IsTTY(w),
		started:   time.Now(),
	}
}

// Verbosity returns the configured verbosity level.
func (l *Logger) Verbosity() VerbosityLevel { return l.verbosity }

// IsVerbose reports whether verbose (or debug) output is enabled.
func (l *Logger) IsVerbose() bool { return l.verbosity >= VerbosityVerbose }

// IsDebug reports whether debug output is enabled.
func (l *Logger) IsDebug() bool { return l.verbosity >= VerbosityDebug }

// IsTTY reports whether the logger's writer is a terminal.
func (l *Logger) IsTTY() bool { return l.isTTY }

// GetWriter returns the logger's writer, for callers (banner printing)
// that share the same destination.
func (l *Logger) GetWriter() io.Writer { return l.writer }

// Progress prints a high-level progress line in verbose and debug modes.
func (l *Logger) Progress(format string, args ...interface{}) {
	if l.verbosity >= VerbosityVerbose {
		fmt.Fprintf(l.writer, format+"\n", args...)
	}
}

// Debug prints a debug line prefixed with elapsed run time.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.verbosity >= VerbosityDebug {
		elapsed := time.Since(l.started).Round(time.Millisecond)
		fmt.Fprintf(l.writer, "[%s] %s\n", elapsed, fmt.Sprintf(format, args...))
	}
}

// Warning prints a warning regardless of verbosity.
func (l *Logger) Warning(format string, args ...interface{}) {
	fmt.Fprintf(l.writer, "Warning: %s\n", fmt.Sprintf(format, args...))
}

// Error prints an error regardless of verbosity.
func (l *Logger) Error(format string, args ...interface{}) {
	fmt.Fprintf(l.writer, "Error: %s\n", fmt.Sprintf(format, args...))
}

// Stage starts timing a named pipeline stage and returns the function
// that completes it. Stages are recorded in completion order.
func (l *Logger) Stage(name string) func() {
	start := time.Now()
	return func() {
		l.stages = append(l.stages, StageDuration{Name: name, Took: time.Since(start)})
	}
}

// StageDurations returns the completed stages in completion order.
func (l *Logger) StageDurations() []StageDuration {
	out := make([]StageDuration, len(l.stages))
	copy(out, l.stages)
	return out
}

// WriteStageSummary prints the per-stage timing table (verbose only).
func (l *Logger) WriteStageSummary() {
	if l.verbosity < VerbosityVerbose || len(l.stages) == 0 {
		return
	}
	fmt.Fprintln(l.writer, "\nStages:")
	for _, s := range l.stages {
		fmt.Fprintf(l.writer, "  %s: %s\n", s.Name, s.Took.Round(time.Millisecond))
	}
}

// StartProgress shows a progress bar sized to the terminal. total < 0
// shows a spinner for indeterminate work. Off a TTY the description is
// printed once instead, so piped output stays line-oriented.
func (l *Logger) StartProgress(description string, total int) {
	if !l.isTTY {
		l.Progress("%s...", description)
		return
	}
	if l.bar != nil {
		_ = l.bar.Finish()
	}

	width := TerminalWidth(l.writer)/2 - len(description)
	if width < 10 {
		width = 10
	}
	opts := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(l.writer),
		progressbar.OptionSetWidth(width),
		progressbar.OptionThrottle(65 * time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(l.writer) }),
	}
	if total < 0 {
		opts = append(opts, progressbar.OptionSpinnerType(14))
		l.bar = progressbar.NewOptions(-1, opts...)
		return
	}
	opts = append(opts, progressbar.OptionShowCount(), progressbar.OptionSetRenderBlankState(true))
	l.bar = progressbar.NewOptions(total, opts...)
}

// UpdateProgress advances the bar by delta. A no-op without a bar.
func (l *Logger) UpdateProgress(delta int) error {
	if l.bar == nil {
		return nil
	}
	return l.bar.Add(delta)
}

// FinishProgress completes and clears the bar. A no-op without a bar.
func (l *Logger) FinishProgress() error {
	if l.bar == nil {
		return nil
	}
	err := l.bar.Finish()
	l.bar = nil
	return err
}
