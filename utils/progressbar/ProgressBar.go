// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
)

// ProgressBar prints training progress to a writer. Each call to
// Increment advances the bar by one unit of work; the bar redraws in
// place until Close is called.
type ProgressBar struct {
	width   int
	max     int
	current int
	out     io.Writer
	closed  bool
}

// New returns a new progress bar that is width characters wide and
// reaches 100% after max Increment calls
func New(width, max int, out io.Writer) *ProgressBar {
	return &ProgressBar{
		width: width,
		max:   max,
		out:   out,
	}
}

// Increment advances the internal progress counter and redraws the
// bar. Each time a unit of work is performed, Increment should be
// called.
func (p *ProgressBar) Increment() {
	if p.closed || p.current >= p.max {
		return
	}
	p.current++
	p.draw()
}

// Close finishes the bar and moves to the next line
func (p *ProgressBar) Close() {
	if p.closed {
		return
	}
	p.closed = true
	fmt.Fprintln(p.out)
}

func (p *ProgressBar) draw() {
	progress := float64(p.current) / float64(p.max)
	filled := int(progress * float64(p.width))

	fmt.Fprintf(p.out, "\r[%v%v] %3.f%%",
		strings.Repeat("=", filled),
		strings.Repeat(" ", p.width-filled),
		progress*100,
	)
}
