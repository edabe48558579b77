package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// redrawInterval limits how often the bar is redrawn; large exports finish
// thousands of tiles per second.
const redrawInterval = 100 * time.Millisecond

const barWidth = 30

// Progress draws a progress bar for a pool run and summarizes it.
type Progress struct {
	mu       sync.Mutex
	out      io.Writer
	enabled  bool
	start    time.Time
	lastDraw time.Time
	snap     snapshot
}

// snapshot is the counter state at one point of a run.
type snapshot struct {
	completed, total, failed int
	elapsed                  time.Duration
}

func (s snapshot) rate() float64 {
	if s.elapsed <= 0 {
		return 0
	}
	return float64(s.completed) / s.elapsed.Seconds()
}

func (s snapshot) eta() time.Duration {
	r := s.rate()
	if r <= 0 || s.completed >= s.total {
		return 0
	}
	return time.Duration(float64(s.total-s.completed) / r * float64(time.Second))
}

func (s snapshot) bar() string {
	frac := 1.0
	if s.total > 0 {
		frac = float64(s.completed) / float64(s.total)
	}
	filled := min(int(frac*barWidth), barWidth)
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

func (s snapshot) line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\r[%s] %d/%d tiles", s.bar(), s.completed, s.total)
	if s.failed > 0 {
		fmt.Fprintf(&b, " (%d failed)", s.failed)
	}
	fmt.Fprintf(&b, " - %.1f tiles/sec", s.rate())
	if eta := s.eta(); eta > 0 {
		fmt.Fprintf(&b, " - ETA: %s", formatDuration(eta))
	}
	if s.completed == s.total {
		fmt.Fprintf(&b, " - Done in %s", formatDuration(s.elapsed))
	}
	// pad over the previous, possibly longer line
	b.WriteString("          ")
	return b.String()
}

// NewProgress creates a progress tracker writing to w. A nil w means
// stderr. A disabled tracker only counts.
func NewProgress(w io.Writer, total int, enabled bool) *Progress {
	if w == nil {
		w = os.Stderr
	}
	return &Progress{
		out:     w,
		enabled: enabled,
		start:   time.Now(),
		snap:    snapshot{total: total},
	}
}

// Update records pool progress and redraws the bar, at most once per
// redrawInterval unless the run just finished.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.completed, p.snap.total, p.snap.failed = completed, total, failed

	if !p.enabled {
		return
	}
	now := time.Now()
	if completed < total && now.Sub(p.lastDraw) < redrawInterval {
		return
	}
	p.lastDraw = now
	p.drawLocked(now)
}

// Callback returns a ProgressFunc suitable for use with Pool.Config.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

func (p *Progress) snapshotLocked(now time.Time) snapshot {
	s := p.snap
	s.elapsed = now.Sub(p.start)
	return s
}

func (p *Progress) drawLocked(now time.Time) {
	fmt.Fprint(p.out, p.snapshotLocked(now).line())
}

// Done draws the final state and ends the line.
func (p *Progress) Done() {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drawLocked(time.Now())
	fmt.Fprintln(p.out)
}

// Summary describes the finished run for the log.
func (p *Progress) Summary() string {
	p.mu.Lock()
	s := p.snapshotLocked(time.Now())
	p.mu.Unlock()

	return fmt.Sprintf("Rendered %d/%d tiles (%d failed) in %s (%.1f tiles/sec)",
		s.completed-s.failed, s.total, s.failed, formatDuration(s.elapsed), s.rate())
}

// formatDuration prints whole seconds below an hour and whole minutes above.
func formatDuration(d time.Duration) string {
	if d >= time.Hour {
		return strings.TrimSuffix(d.Round(time.Minute).String(), "0s")
	}
	return d.Round(time.Second).String()
}
