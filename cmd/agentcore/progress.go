package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

const (
	defaultBarWidth = 30
	minBarWidth     = 10
)

// progressWriter draws run progress. On a terminal it redraws one line in
// place; otherwise it prints one line per step.
type progressWriter struct {
	mu    sync.Mutex
	w     io.Writer
	tty   bool
	width int
	drawn bool
}

func newProgressWriter(w io.Writer) *progressWriter {
	p := &progressWriter{w: w, width: defaultBarWidth}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = true
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil {
			p.width = barWidth(cols)
		}
	}
	return p
}

// barWidth leaves room for the percentage and a short label.
func barWidth(cols int) int {
	w := cols/2 - 10
	if w < minBarWidth {
		return minBarWidth
	}
	if w > 60 {
		return 60
	}
	return w
}

// Update implements agent.RunOptions.OnProgress.
func (p *progressWriter) Update(progress int, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.tty {
		fmt.Fprintf(p.w, "%3d%% %s\n", progress, label)
		return
	}
	fmt.Fprintf(p.w, "\r\x1b[2K%s", renderBar(progress, p.width, label))
	p.drawn = true
}

// Done ends the in-place line.
func (p *progressWriter) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprintln(p.w)
		p.drawn = false
	}
}

func renderBar(progress, width int, label string) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	filled := progress * width / 100
	return fmt.Sprintf("[%s%s] %3d%% %s",
		strings.Repeat("#", filled), strings.Repeat(" ", width-filled), progress, label)
}
