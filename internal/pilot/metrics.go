package pilot

import (
	"sync"
	"time"
)

const metricWindow = 50

// RollingMetric keeps a bounded window of duration samples and reports
// their average. Zero value is ready to use.
type RollingMetric struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
}

// Add records one sample, evicting the oldest once the window fills.
func (m *RollingMetric) Add(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) < metricWindow {
		m.samples = append(m.samples, d)
		return
	}
	m.samples[m.next] = d
	m.next = (m.next + 1) % metricWindow
}

// Average returns the mean of the current window, zero when empty.
func (m *RollingMetric) Average() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, s := range m.samples {
		sum += s
	}
	return sum / time.Duration(len(m.samples))
}

// Count returns how many samples the window currently holds.
func (m *RollingMetric) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.samples)
}

// Metrics aggregates the per-stage latencies of the piloting loop.
type Metrics struct {
	Frame    RollingMetric
	Decide   RollingMetric
	Dispatch RollingMetric
}

// Snapshot is a point-in-time view suitable for printing or logging.
type Snapshot struct {
	Frame    time.Duration `json:"frame"`
	Decide   time.Duration `json:"decide"`
	Dispatch time.Duration `json:"dispatch"`
	Cycles   int           `json:"cycles"`
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Frame:    m.Frame.Average(),
		Decide:   m.Decide.Average(),
		Dispatch: m.Dispatch.Average(),
		Cycles:   m.Frame.Count(),
	}
}
