package progress

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Unit selects how counts are rendered.
type Unit int

const (
	// Bytes renders counts as IEC sizes (KiB, MiB, ...).
	Bytes Unit = iota
	// Files renders counts as plain file numbers.
	Files
)

// format renders n in the unit.
func (u Unit) format(n int64) string {
	if u == Bytes {
		if n < 0 {
			n = 0
		}
		return humanize.IBytes(uint64(n))
	}
	return strconv.FormatInt(n, 10) + " files"
}

// Options configures a Reporter.
type Options struct {
	// Label prefixes every line, e.g. "downloading trade_database.zip".
	Label string

	// Total is the expected final count. Non-positive means unbounded.
	Total int64

	// Unit selects byte or file rendering.
	Unit Unit

	// UpdateInterval throttles redraws. Default: 200ms.
	UpdateInterval time.Duration
}

// Reporter writes progress to an output, redrawing a single line.
// It is safe for concurrent use.
type Reporter struct {
	out  io.Writer
	opts Options

	mu        sync.Mutex
	current   int64
	startTime time.Time
	lastDraw  time.Time
	finished  bool
}

// New creates a Reporter writing to out. A nil out discards output.
func New(out io.Writer, opts Options) *Reporter {
	if out == nil {
		out = io.Discard
	}
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = 200 * time.Millisecond
	}
	now := time.Now()
	return &Reporter{
		out:       out,
		opts:      opts,
		startTime: now,
	}
}

// Add advances the counter by n and redraws if the interval elapsed.
func (r *Reporter) Add(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current += n
	now := time.Now()
	if now.Sub(r.lastDraw) < r.opts.UpdateInterval {
		return
	}
	r.lastDraw = now
	r.draw(now)
}

// Current returns the accumulated count.
func (r *Reporter) Current() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Finish draws the final state and terminates the line.
// Calling Finish more than once is a no-op.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return
	}
	r.finished = true
	r.draw(time.Now())
	fmt.Fprintln(r.out)
}

// draw renders the current line. The caller holds mu.
func (r *Reporter) draw(now time.Time) {
	elapsed := now.Sub(r.startTime)
	if r.opts.Total > 0 {
		percent := float64(r.current) / float64(r.opts.Total) * 100
		fmt.Fprintf(r.out, "\r%s: %5.1f%% | %s / %s | %s",
			r.opts.Label,
			percent,
			r.opts.Unit.format(r.current),
			r.opts.Unit.format(r.opts.Total),
			formatDuration(elapsed),
		)
		return
	}
	fmt.Fprintf(r.out, "\r%s: %s | %s",
		r.opts.Label,
		r.opts.Unit.format(r.current),
		formatDuration(elapsed),
	)
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
