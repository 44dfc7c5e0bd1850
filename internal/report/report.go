// Package report owns the line-oriented progress output of the sync commands.
package report

import (
	"fmt"
	"io"
	"sync"
)

// Separator frames each config scope block.
const Separator = "---------------------------------------"

// Reporter receives progress lines in program order.
type Reporter interface {
	WriteLine(text string)
}

// Writer is a Reporter over an io.Writer. Write errors are dropped; the
// progress output is informational only.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) WriteLine(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintln(w.out, text)
}

// Writef formats one line onto r.
func Writef(r Reporter, format string, args ...any) {
	r.WriteLine(fmt.Sprintf(format, args...))
}

// Recorder keeps every line in memory.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *Recorder) WriteLine(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, text)
}

// Lines returns a copy of the recorded lines.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Discard drops every line.
var Discard Reporter = discard{}

type discard struct{}

func (discard) WriteLine(string) {}
