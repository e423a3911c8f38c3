// internal/utils/metrics.go
package utils

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metric names shared by the store, the durable store and the HTTP layer
const (
	MetricMutations      = "store.mutations"
	MetricSubscribers    = "store.subscribers"
	MetricPersistWrites  = "persist.writes"
	MetricPersistErrors  = "persist.errors"
	MetricPersistLatency = "persist.latency_ms"
	MetricLoadFailures   = "persist.load_failures"
	MetricHTTPRequests   = "http.requests"
	MetricHTTPErrors     = "http.errors"
	MetricHTTPLatency    = "http.latency_ms"
	MetricWSClients      = "ws.clients"
	MetricAssistantCalls = "assistant.calls"
	MetricAssistantFails = "assistant.failures"
)

// MetricsCollector collects counters, gauges and simple histograms
type MetricsCollector struct {
	counters   map[string]*int64
	gauges     map[string]*int64
	histograms map[string]*Histogram

	mu sync.RWMutex
}

// Histogram tracks count, sum, min and max
type Histogram struct {
	count int64
	sum   int64
	min   int64
	max   int64
	mu    sync.Mutex
}

// NewMetricsCollector creates an empty collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]*int64),
		gauges:     make(map[string]*int64),
		histograms: make(map[string]*Histogram),
	}
}

// slot returns the value cell for name, creating it under the write lock on first use
func (m *MetricsCollector) slot(table map[string]*int64, name string) *int64 {
	m.mu.RLock()
	v, exists := table[name]
	m.mu.RUnlock()
	if exists {
		return v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, exists = table[name]; !exists {
		v = new(int64)
		table[name] = v
	}
	return v
}

// IncrementCounter increments a counter metric. A nil collector is a no-op.
func (m *MetricsCollector) IncrementCounter(name string) {
	m.AddCounter(name, 1)
}

func (m *MetricsCollector) AddCounter(name string, value int64) {
	if m == nil {
		return
	}
	atomic.AddInt64(m.slot(m.counters, name), value)
}

func (m *MetricsCollector) SetGauge(name string, value int64) {
	if m == nil {
		return
	}
	atomic.StoreInt64(m.slot(m.gauges, name), value)
}

func (m *MetricsCollector) AddGauge(name string, delta int64) {
	if m == nil {
		return
	}
	atomic.AddInt64(m.slot(m.gauges, name), delta)
}

func (m *MetricsCollector) GetGauge(name string) int64 {
	if m == nil {
		return 0
	}
	return atomic.LoadInt64(m.slot(m.gauges, name))
}

func (m *MetricsCollector) GetCounterValue(name string) int64 {
	if m == nil {
		return 0
	}
	return atomic.LoadInt64(m.slot(m.counters, name))
}

// ObserveDuration records d in milliseconds in the named histogram
func (m *MetricsCollector) ObserveDuration(name string, d time.Duration) {
	m.RecordHistogram(name, d.Milliseconds())
}

// RecordHistogram records a value in a histogram
func (m *MetricsCollector) RecordHistogram(name string, value int64) {
	if m == nil {
		return
	}

	m.mu.RLock()
	histogram, exists := m.histograms[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		histogram, exists = m.histograms[name]
		if !exists {
			histogram = &Histogram{min: value, max: value}
			m.histograms[name] = histogram
		}
		m.mu.Unlock()
	}

	histogram.mu.Lock()
	defer histogram.mu.Unlock()

	histogram.count++
	histogram.sum += value
	if value < histogram.min {
		histogram.min = value
	}
	if value > histogram.max {
		histogram.max = value
	}
}

// GetMetrics returns a snapshot of all metrics
func (m *MetricsCollector) GetMetrics() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for name, v := range m.counters {
		counters[name] = atomic.LoadInt64(v)
	}

	gauges := make(map[string]int64, len(m.gauges))
	for name, v := range m.gauges {
		gauges[name] = atomic.LoadInt64(v)
	}

	histograms := make(map[string]map[string]int64, len(m.histograms))
	for name, h := range m.histograms {
		h.mu.Lock()
		histograms[name] = map[string]int64{
			"count": h.count,
			"sum":   h.sum,
			"min":   h.min,
			"max":   h.max,
		}
		h.mu.Unlock()
	}

	return map[string]interface{}{
		"counters":   counters,
		"gauges":     gauges,
		"histograms": histograms,
	}
}
