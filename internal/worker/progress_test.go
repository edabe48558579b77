package worker

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotLine(t *testing.T) {
	s := snapshot{completed: 5, total: 10, failed: 1, elapsed: 10 * time.Second}

	line := s.line()
	for _, want := range []string{"█", "░", "5/10 tiles", "(1 failed)", "0.5 tiles/sec", "ETA: 10s"} {
		assert.Contains(t, line, want)
	}
	assert.NotContains(t, line, "Done in")
}

func TestSnapshotLineFinished(t *testing.T) {
	s := snapshot{completed: 4, total: 4, elapsed: 2 * time.Second}

	line := s.line()
	assert.Contains(t, line, "Done in 2s")
	assert.NotContains(t, line, "ETA:")
	assert.NotContains(t, line, "failed")
	assert.Equal(t, strings.Repeat("█", barWidth), s.bar())
}

func TestSnapshotZeroTotal(t *testing.T) {
	s := snapshot{}
	assert.Contains(t, s.line(), "0/0 tiles")
	assert.Zero(t, s.rate())
	assert.Zero(t, s.eta())
}

func TestProgressRedrawThrottled(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 100, true)

	p.Update(1, 100, 0)
	first := buf.Len()
	require.NotZero(t, first)

	p.Update(2, 100, 0)
	assert.Equal(t, first, buf.Len(), "second update within the interval redraws")

	p.Update(100, 100, 0)
	assert.Greater(t, buf.Len(), first, "final update always redraws")
	assert.Contains(t, buf.String(), "100/100 tiles")
}

func TestProgressDisabledOnlyCounts(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 10, false)

	p.Callback()(5, 10, 1)
	p.Done()

	assert.Zero(t, buf.Len())
	assert.Equal(t, 5, p.snap.completed)
	assert.Equal(t, 1, p.snap.failed)
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 3, true)
	p.start = time.Now().Add(-3 * time.Second)

	p.Update(3, 3, 0)
	buf.Reset()
	p.Done()

	out := buf.String()
	assert.Contains(t, out, "Done in")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestProgressSummary(t *testing.T) {
	p := NewProgress(nil, 10, false)
	p.start = time.Now().Add(-10 * time.Second)

	p.Update(10, 10, 2)

	summary := p.Summary()
	assert.Contains(t, summary, "Rendered 8/10 tiles")
	assert.Contains(t, summary, "(2 failed)")
	assert.Contains(t, summary, "in 10s")
}

func TestFormatDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"30s":   30 * time.Second,
		"1m30s": 90 * time.Second,
		"1h5m":  65*time.Minute + 20*time.Second,
		"2s":    1600 * time.Millisecond,
	}
	for want, d := range tests {
		t.Run(want, func(t *testing.T) {
			assert.Equal(t, want, formatDuration(d))
		})
	}
}
