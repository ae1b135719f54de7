// Package metrics provides performance instrumentation for decarb.
//
// This package enables visibility into performance characteristics:
// - Timing metrics for pipeline stages (clean, index, classify, render)
// - Counters for dropped and excluded rows
//
// Metrics are collected in-memory with atomic operations for thread-safety.
// Collection is enabled by default but can be disabled via DECARB_METRICS=0.
//
// Usage:
//
//	func expensiveOperation() {
//	    defer metrics.Timer(metrics.PanelClean)()
//	    // ... operation code
//	}
package metrics

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// enabled controls whether metrics are collected.
// Defaults to true unless DECARB_METRICS=0 is set.
var enabled = os.Getenv("DECARB_METRICS") != "0"

// Enabled returns whether metrics collection is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of metrics collection.
func SetEnabled(e bool) {
	enabled = e
}

// Well-known operation names for pipeline stages.
const (
	DatasourceFetch = "datasource_fetch"
	DatasourceLoad  = "datasource_load"
	PanelClean      = "panel_clean"
	IndexBuild      = "index_build"
	Classify        = "classify"
	ReportRender    = "report_render"
	ChartRender     = "chart_render"
)

// TimingMetric tracks timing statistics for a named operation.
// All methods are thread-safe using atomic operations.
type TimingMetric struct {
	name    string
	count   int64
	totalNs int64
	maxNs   int64
	minNs   int64 // 0 means not set
}

// Record records a single timing measurement.
func (m *TimingMetric) Record(d time.Duration) {
	if !enabled {
		return
	}
	ns := d.Nanoseconds()
	atomic.AddInt64(&m.count, 1)
	atomic.AddInt64(&m.totalNs, ns)

	for {
		old := atomic.LoadInt64(&m.maxNs)
		if ns <= old || atomic.CompareAndSwapInt64(&m.maxNs, old, ns) {
			break
		}
	}
	for {
		old := atomic.LoadInt64(&m.minNs)
		if (old != 0 && ns >= old) || atomic.CompareAndSwapInt64(&m.minNs, old, ns) {
			break
		}
	}
}

// Count returns the number of recorded measurements.
func (m *TimingMetric) Count() int64 {
	return atomic.LoadInt64(&m.count)
}

// Total returns the cumulative duration of all measurements.
func (m *TimingMetric) Total() time.Duration {
	return time.Duration(atomic.LoadInt64(&m.totalNs))
}

// Max returns the longest single measurement.
func (m *TimingMetric) Max() time.Duration {
	return time.Duration(atomic.LoadInt64(&m.maxNs))
}

// Min returns the shortest single measurement, or 0 if none recorded.
func (m *TimingMetric) Min() time.Duration {
	return time.Duration(atomic.LoadInt64(&m.minNs))
}

// Mean returns the average duration, or 0 if none recorded.
func (m *TimingMetric) Mean() time.Duration {
	count := atomic.LoadInt64(&m.count)
	if count == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&m.totalNs) / count)
}

// registry holds all named timing metrics.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]*TimingMetric)
)

// Get returns the timing metric for the given name, creating it if needed.
func Get(name string) *TimingMetric {
	registryMu.RLock()
	m, ok := registry[name]
	registryMu.RUnlock()
	if ok {
		return m
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if m, ok = registry[name]; ok {
		return m
	}
	m = &TimingMetric{name: name}
	registry[name] = m
	return m
}

// Timer starts a timer for the named operation and returns a function that
// records the elapsed time when called. Designed for defer:
//
//	defer metrics.Timer(metrics.PanelClean)()
func Timer(name string) func() {
	if !enabled {
		return func() {}
	}
	m := Get(name)
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// Reset clears all collected metrics. Intended for tests.
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]*TimingMetric)
}

// Report returns a human-readable summary of all collected metrics,
// sorted by name for deterministic output.
func Report() string {
	registryMu.RLock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	registryMu.RUnlock()
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("metrics:\n")
	for _, name := range names {
		m := Get(name)
		if m.Count() == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-18s count=%d total=%v mean=%v min=%v max=%v\n",
			name, m.Count(), m.Total(), m.Mean(), m.Min(), m.Max()))
	}
	return sb.String()
}
