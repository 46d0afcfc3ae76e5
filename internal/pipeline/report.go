package pipeline

import (
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// Reporter prints the human-readable progress lines of a run. A nil
// Reporter prints nothing.
type Reporter struct {
	w io.Writer
}

// NewReporter writes progress to w, usually stdout.
func NewReporter(w io.Writer) *Reporter { return &Reporter{w: w} }

// Step prints one progress line.
func (r *Reporter) Step(format string, args ...any) {
	r.line("", format, args...)
}

// Success prints a ✅ line.
func (r *Reporter) Success(format string, args ...any) {
	r.line("✅ ", format, args...)
}

// Failure prints a ❌ line for err, prefixed with what was being done.
func (r *Reporter) Failure(prefix string, err error) {
	if prefix == "" {
		r.line("❌ ", "%v", err)
		return
	}
	r.line("❌ ", "%s: %v", prefix, err)
}

func (r *Reporter) line(mark, format string, args ...any) {
	if r == nil || r.w == nil {
		return
	}
	_, _ = fmt.Fprintf(r.w, mark+format+"\n", args...)
}

// rangeText formats the valid value range of g, or notes that every cell
// is missing.
func rangeText(g domain.Grid) string {
	lo, hi, ok := g.Range()
	if !ok {
		return "no valid values"
	}
	return fmt.Sprintf("%.1f to %.1f", lo, hi)
}

// degrees formats a radius the way it was typed, keeping one decimal for
// whole numbers.
func degrees(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
