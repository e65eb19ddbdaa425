package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RuntimeCollector reports process-wide goroutine and memory stats
// alongside the client's own metrics, useful for spotting a leaking
// spool-write goroutine or an actor mailbox backing up.
type RuntimeCollector struct {
	goroutines *prometheus.Desc
	memAlloc   *prometheus.Desc
	memTotal   *prometheus.Desc
	memSys     *prometheus.Desc
	gcPause    *prometheus.Desc
	gcRuns     *prometheus.Desc
}

// NewRuntimeCollector creates a runtime stats collector under namespace/subsystem.
func NewRuntimeCollector(namespace, subsystem string) *RuntimeCollector {
	return &RuntimeCollector{
		goroutines: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "runtime_goroutines"),
			"Number of goroutines",
			nil, nil,
		),
		memAlloc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "runtime_memory_alloc_bytes"),
			"Bytes allocated and still in use",
			nil, nil,
		),
		memTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "runtime_memory_total_alloc_bytes"),
			"Total bytes allocated (even if freed)",
			nil, nil,
		),
		memSys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "runtime_memory_sys_bytes"),
			"Bytes obtained from system",
			nil, nil,
		),
		gcPause: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "runtime_gc_pause_seconds"),
			"GC pause duration",
			nil, nil,
		),
		gcRuns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "runtime_gc_runs_total"),
			"Total number of completed GC cycles",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *RuntimeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.goroutines
	ch <- c.memAlloc
	ch <- c.memTotal
	ch <- c.memSys
	ch <- c.gcPause
	ch <- c.gcRuns
}

// Collect implements prometheus.Collector.
func (c *RuntimeCollector) Collect(ch chan<- prometheus.Metric) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	ch <- prometheus.MustNewConstMetric(c.goroutines, prometheus.GaugeValue, float64(runtime.NumGoroutine()))
	ch <- prometheus.MustNewConstMetric(c.memAlloc, prometheus.GaugeValue, float64(stats.Alloc))
	ch <- prometheus.MustNewConstMetric(c.memTotal, prometheus.CounterValue, float64(stats.TotalAlloc))
	ch <- prometheus.MustNewConstMetric(c.memSys, prometheus.GaugeValue, float64(stats.Sys))
	ch <- prometheus.MustNewConstMetric(c.gcRuns, prometheus.CounterValue, float64(stats.NumGC))

	if stats.NumGC > 0 {
		ch <- prometheus.MustNewConstMetric(c.gcPause, prometheus.GaugeValue, float64(stats.PauseNs[(stats.NumGC-1)%256])/1e9)
	}
}

// Timer measures the duration of an in-flight operation against a histogram.
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer starts a timer that will record into histogram.
func NewTimer(histogram prometheus.Histogram) *Timer {
	return &Timer{start: time.Now(), observer: histogram}
}

// ObserveDuration records the elapsed time and returns it.
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	t.observer.Observe(duration.Seconds())
	return duration
}
