package qcec

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Metrics aggregates check outcomes and latencies across tasks. Attach one
// collector to the managers of a batch run to see where the time goes.
type Metrics struct {
	mu sync.RWMutex

	ChecksCompleted int64
	TotalCheckTime  time.Duration

	EquivalentCount    int64
	NotEquivalentCount int64
	ProbableCount      int64
	NoInformationCount int64

	// sliding window of check latencies in seconds
	latencies  []float64
	windowSize int
}

// MetricsSnapshot is a consistent read of the collector.
type MetricsSnapshot struct {
	ChecksCompleted    int64
	TotalCheckTime     time.Duration
	AverageCheckTime   time.Duration
	P50CheckTime       time.Duration
	P95CheckTime       time.Duration
	P99CheckTime       time.Duration
	EquivalentCount    int64
	NotEquivalentCount int64
	ProbableCount      int64
	NoInformationCount int64
}

// NewMetrics creates a collector holding the last 1000 check latencies.
func NewMetrics() *Metrics {
	return &Metrics{
		latencies:  make([]float64, 0, 1000),
		windowSize: 1000,
	}
}

// RecordCheck folds one finished check into the collector.
func (m *Metrics) RecordCheck(verdict EquivalenceCriterion, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ChecksCompleted++
	m.TotalCheckTime += duration

	switch verdict {
	case Equivalent, EquivalentUpToGlobalPhase, EquivalentUpToPhase:
		m.EquivalentCount++
	case NotEquivalent:
		m.NotEquivalentCount++
	case ProbablyEquivalent, ProbablyNotEquivalent:
		m.ProbableCount++
	default:
		m.NoInformationCount++
	}

	m.latencies = append(m.latencies, duration.Seconds())
	if len(m.latencies) > m.windowSize {
		m.latencies = m.latencies[len(m.latencies)-m.windowSize:]
	}
}

// Snapshot returns a consistent copy with latency percentiles over the
// current window.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := MetricsSnapshot{
		ChecksCompleted:    m.ChecksCompleted,
		TotalCheckTime:     m.TotalCheckTime,
		EquivalentCount:    m.EquivalentCount,
		NotEquivalentCount: m.NotEquivalentCount,
		ProbableCount:      m.ProbableCount,
		NoInformationCount: m.NoInformationCount,
	}
	if m.ChecksCompleted > 0 {
		s.AverageCheckTime = m.TotalCheckTime / time.Duration(m.ChecksCompleted)
	}
	if len(m.latencies) == 0 {
		return s
	}

	sorted := make([]float64, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Float64s(sorted)

	quantile := func(q float64) time.Duration {
		return time.Duration(stat.Quantile(q, stat.Empirical, sorted, nil) * float64(time.Second))
	}
	s.P50CheckTime = quantile(0.50)
	s.P95CheckTime = quantile(0.95)
	s.P99CheckTime = quantile(0.99)
	return s
}
