package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker prints a single updating line per source while its chunks
// are embedded. Workers call Increment concurrently.
type ProgressTracker struct {
	mu sync.Mutex

	out     io.Writer
	source  string
	total   int
	every   int
	done    int
	printed int
	began   time.Time
	started bool
}

// NewProgressTracker tracks total chunks of source, printing every `every`
// chunks. A nil writer discards output.
func NewProgressTracker(out io.Writer, source string, total, every int) *ProgressTracker {
	if out == nil {
		out = io.Discard
	}
	return &ProgressTracker{
		out:    out,
		source: source,
		total:  total,
		every:  max(every, 1),
	}
}

// Start resets the count and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.began = time.Now()
	p.started = true
	p.done, p.printed = 0, 0
}

// Increment records n more embedded chunks. The count never exceeds total.
func (p *ProgressTracker) Increment(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.done = min(p.done+n, p.total)
	if p.done-p.printed >= p.every {
		p.print()
		p.printed = p.done
	}
}

// Current returns the number of chunks embedded so far.
func (p *ProgressTracker) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Finish prints the last line and ends it. A run that failed part way
// reports how far it got.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.print()
	fmt.Fprintln(p.out)
}

// Elapsed returns the time since Start, or zero before it.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return 0
	}
	return time.Since(p.began)
}

// print writes the progress line; p.mu must be held.
func (p *ProgressTracker) print() {
	secs := time.Since(p.began).Seconds()
	var rate, pct float64
	if secs > 0 {
		rate = float64(p.done) / secs
	}
	if p.total > 0 {
		pct = 100 * float64(p.done) / float64(p.total)
	}

	eta := "-"
	if rate > 0 && p.done < p.total {
		eta = (time.Duration(float64(p.total-p.done)/rate) * time.Second).Round(time.Second).String()
	}
	fmt.Fprintf(p.out, "\r%s: %d/%d (%.1f%%) - %.1f chunks/s, eta %s", p.source, p.done, p.total, pct, rate, eta)
}
