package service

import (
	"sync"
	"time"

	"github.com/Strob0t/RegAdvisor/internal/domain/strategy"
)

const defaultMetricsWindow = 100

// PerformanceStats summarizes the retained processing times of one strategy.
type PerformanceStats struct {
	Average time.Duration `json:"average"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
	Count   int           `json:"count"`
}

// ring keeps the most recent samples in a fixed-size buffer.
type ring struct {
	buf  []time.Duration
	next int
	full bool
}

func (r *ring) add(d time.Duration) {
	r.buf[r.next] = d
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) samples() []time.Duration {
	if r.full {
		return r.buf
	}
	return r.buf[:r.next]
}

// performanceTracker records per-strategy processing times. It is shared by
// concurrent queries.
type performanceTracker struct {
	mu     sync.Mutex
	window int
	rings  map[strategy.Name]*ring
}

func newPerformanceTracker(window int) *performanceTracker {
	if window < 1 {
		window = defaultMetricsWindow
	}
	return &performanceTracker{window: window, rings: make(map[strategy.Name]*ring)}
}

// Record appends d to the strategy's window, evicting the oldest sample when full.
func (t *performanceTracker) Record(name strategy.Name, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rings[name]
	if !ok {
		r = &ring{buf: make([]time.Duration, t.window)}
		t.rings[name] = r
	}
	r.add(d)
}

// Snapshot computes stats for every strategy that has samples.
func (t *performanceTracker) Snapshot() map[strategy.Name]PerformanceStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[strategy.Name]PerformanceStats, len(t.rings))
	for name, r := range t.rings {
		s := r.samples()
		if len(s) == 0 {
			continue
		}
		st := PerformanceStats{Min: s[0], Max: s[0], Count: len(s)}
		var sum time.Duration
		for _, d := range s {
			sum += d
			st.Min = min(st.Min, d)
			st.Max = max(st.Max, d)
		}
		st.Average = sum / time.Duration(len(s))
		out[name] = st
	}
	return out
}
