package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const progressBarWidth = 30

// Progress draws a single-line progress bar for bulk operations. It only
// redraws when the bar or the count changes by a full percent, so large
// imports do not flood the terminal. A quiet Progress writes nothing.
type Progress struct {
	mu       sync.Mutex
	w        io.Writer
	label    string
	quiet    bool
	total    int64
	done     int64
	drawn    int64
	started  time.Time
	now      func() time.Time
	finished bool
}

// NewProgress creates a progress bar prefixed with label. A nil w selects
// os.Stderr.
func NewProgress(w io.Writer, label string, quiet bool) *Progress {
	if w == nil {
		w = os.Stderr
	}
	return &Progress{w: w, label: label, quiet: quiet, drawn: -1, now: time.Now}
}

// Start resets the bar for total items.
func (p *Progress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.done = 0
	p.drawn = -1
	p.finished = false
	p.started = p.now()
	p.render(false)
}

// Add advances the bar by n items, never past the total.
func (p *Progress) Add(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done += n
	if p.done > p.total {
		p.done = p.total
	}
	p.render(false)
}

// Finish fills the bar and ends the line.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finished {
		return
	}
	p.finished = true
	p.done = p.total
	p.render(true)
	if !p.quiet {
		fmt.Fprintln(p.w)
	}
}

// Fail ends the line with err.
func (p *Progress) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.finished = true
	if !p.quiet {
		fmt.Fprintf(p.w, "\n%s failed: %v\n", p.label, err)
	}
}

func (p *Progress) render(force bool) {
	if p.quiet || p.total <= 0 {
		return
	}
	step := p.total / 100
	if step == 0 {
		step = 1
	}
	if !force && p.drawn >= 0 && p.done-p.drawn < step && p.done != p.total {
		return
	}
	p.drawn = p.done

	filled := int(progressBarWidth * p.done / p.total)
	bar := strings.Repeat("#", filled) + strings.Repeat("-", progressBarWidth-filled)

	eta := "--"
	if elapsed := p.now().Sub(p.started); p.done > 0 && elapsed > 0 {
		remaining := time.Duration(float64(elapsed) / float64(p.done) * float64(p.total-p.done))
		eta = remaining.Round(time.Second).String()
	}

	fmt.Fprintf(p.w, "\r%s [%s] %d/%d eta %s", p.label, bar, p.done, p.total, eta)
}
