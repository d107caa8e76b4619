package monitor

import (
	"sort"
	"sync"
	"time"
)

// latencyWindow bounds the per-service sample buffer kept for
// percentile calculations.
const latencyWindow = 1000

type serviceStats struct {
	total        int64
	succeeded    int64
	failed       int64
	totalLatency time.Duration
	latencies    []time.Duration
	lastCall     time.Time
}

// Metrics is the derived per-service view handed out on read. Rates
// and averages are computed at read time, never stored.
type Metrics struct {
	Name            string        `json:"name"`
	TotalCalls      int64         `json:"total_calls"`
	SuccessfulCalls int64         `json:"successful_calls"`
	FailedCalls     int64         `json:"failed_calls"`
	SuccessRate     float64       `json:"success_rate"`
	AverageLatency  time.Duration `json:"average_latency"`
	P95Latency      time.Duration `json:"p95_latency"`
	LastCall        time.Time     `json:"last_call_time,omitzero"`
}

type Monitor struct {
	mutex    sync.RWMutex
	services map[string]*serviceStats
	exporter *Exporter
}

type Option func(*Monitor)

// WithExporter mirrors every recorded call into Prometheus vectors.
func WithExporter(e *Exporter) Option {
	return func(m *Monitor) {
		m.exporter = e
	}
}

func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		services: make(map[string]*serviceStats),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Record books one call outcome for name, creating the row on first
// use. It is safe for concurrent use and consistent with reads that
// follow it.
func (m *Monitor) Record(name string, success bool, latency time.Duration) {
	m.record(name, success, latency)

	if m.exporter != nil {
		m.exporter.observe(name, success, latency)
	}
}

func (m *Monitor) record(name string, success bool, latency time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	stats, ok := m.services[name]
	if !ok {
		stats = &serviceStats{}
		m.services[name] = stats
	}

	stats.total++
	if success {
		stats.succeeded++
	} else {
		stats.failed++
	}

	stats.totalLatency += latency

	stats.latencies = append(stats.latencies, latency)
	if len(stats.latencies) > latencyWindow {
		stats.latencies = stats.latencies[1:]
	}

	stats.lastCall = time.Now()
}

// Metrics returns the derived view for one service. An unknown name
// yields an all-zero row.
func (m *Monitor) Metrics(name string) Metrics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats, ok := m.services[name]
	if !ok {
		return Metrics{Name: name}
	}

	return stats.view(name)
}

// Snapshot returns the derived view of every tracked service, sorted
// by name.
func (m *Monitor) Snapshot() []Metrics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	names := make([]string, 0, len(m.services))
	for name := range m.services {
		names = append(names, name)
	}
	sort.Strings(names)

	snapshot := make([]Metrics, 0, len(names))
	for _, name := range names {
		snapshot = append(snapshot, m.services[name].view(name))
	}

	return snapshot
}

func (s *serviceStats) view(name string) Metrics {
	metric := Metrics{
		Name:            name,
		TotalCalls:      s.total,
		SuccessfulCalls: s.succeeded,
		FailedCalls:     s.failed,
		LastCall:        s.lastCall,
	}

	if s.total == 0 {
		return metric
	}

	metric.SuccessRate = float64(s.succeeded) / float64(s.total)
	metric.AverageLatency = s.totalLatency / time.Duration(s.total)

	if len(s.latencies) > 0 {
		sorted := make([]time.Duration, len(s.latencies))
		copy(sorted, s.latencies)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i] < sorted[j]
		})

		metric.P95Latency = percentile(sorted, 0.95)
	}

	return metric
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
