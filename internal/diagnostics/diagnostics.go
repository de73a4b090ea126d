// Package diagnostics provides the trace reporter used by the compiler and
// the optimizer. Reporting is off by default; when a sink is attached every
// line is tagged with a short per-compilation id so interleaved traces from
// concurrent compiles stay readable.
package diagnostics

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
)

const (
	colorDim   = "\x1b[2m"
	colorCyan  = "\x1b[36m"
	colorReset = "\x1b[0m"
)

// Reporter writes compile-time trace messages to a sink
type Reporter struct {
	out   io.Writer
	color bool
	id    string
}

// New creates a reporter writing to w. Color is enabled only when w is a
// terminal. A nil writer yields a silent reporter.
func New(w io.Writer) *Reporter {
	if w == nil {
		return Discard()
	}
	return &Reporter{
		out:   w,
		color: isTerminal(w),
		id:    uuid.NewString()[:8],
	}
}

// Discard returns a reporter that drops everything
func Discard() *Reporter {
	return &Reporter{out: io.Discard}
}

// ID returns the per-compilation tag, empty for silent reporters
func (r *Reporter) ID() string {
	return r.id
}

// Enabled reports whether the reporter has a live sink
func (r *Reporter) Enabled() bool {
	return r.out != io.Discard
}

// Rewritef reports a single optimizer rewrite
func (r *Reporter) Rewritef(format string, args ...any) {
	r.emit("optimizer", fmt.Sprintf(format, args...))
}

// Stagef reports a compiler stage transition
func (r *Reporter) Stagef(format string, args ...any) {
	r.emit("compiler", fmt.Sprintf(format, args...))
}

func (r *Reporter) emit(stage, msg string) {
	if !r.Enabled() {
		return
	}
	if r.color {
		fmt.Fprintf(r.out, "%s[%s]%s %s%s:%s %s\n", colorDim, r.id, colorReset, colorCyan, stage, colorReset, msg)
		return
	}
	fmt.Fprintf(r.out, "[%s] %s: %s\n", r.id, stage, msg)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
