package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const progressBarWidth = 40

// Progress renders a one-line progress bar for batch evaluation. It is
// safe for concurrent use.
type Progress struct {
	mu      sync.Mutex
	w       io.Writer
	total   int
	done    int
	invalid int
	started time.Time
	now     func() time.Time
}

// NewProgress returns a progress bar writing to w, or to os.Stderr when w
// is nil.
func NewProgress(w io.Writer) *Progress {
	if w == nil {
		w = os.Stderr
	}
	return &Progress{w: w, now: time.Now}
}

// Start resets the bar for total envelopes.
func (p *Progress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total, p.done, p.invalid = total, 0, 0
	p.started = p.now()
	p.render()
}

// Add records done more evaluated envelopes, invalid of which failed.
func (p *Progress) Add(done, invalid int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = min(p.done+done, p.total)
	p.invalid += invalid
	p.render()
}

// Finish fills the bar and ends the line.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = p.total
	p.render()
	fmt.Fprintln(p.w)
}

// Error ends the line with err.
func (p *Progress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "\n✗ Error: %v\n", err)
}

func (p *Progress) render() {
	if p.total == 0 {
		return
	}

	filled := p.done * progressBarWidth / p.total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)

	rate := 0.0
	if elapsed := p.now().Sub(p.started).Seconds(); elapsed > 0 {
		rate = float64(p.done) / elapsed
	}

	fmt.Fprintf(p.w, "\rEvaluating: [%s] %3d%% (%d/%d", bar, p.done*100/p.total, p.done, p.total)
	if p.invalid > 0 {
		fmt.Fprintf(p.w, ", %d invalid", p.invalid)
	}
	fmt.Fprintf(p.w, ") %.0f envelopes/s", rate)
}
