// Package metrics exposes optional Prometheus instrumentation for the
// telemetry client's own internals: buffer depth, flush outcomes, backoff
// state, and spool size. None of it feeds back into control flow — it is
// pure observation. The collectors are registered on first use by Get even
// when MetricsConfig.Enabled is false; that flag only decides whether the
// demo serves them over HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the container of all client-side instrumentation.
type Metrics struct {
	BufferLength        prometheus.Gauge
	EventsTrackedTotal  prometheus.Counter
	EventsDroppedTotal  *prometheus.CounterVec
	FlushTotal          *prometheus.CounterVec
	FlushDuration       prometheus.Histogram
	SpoolBytes          prometheus.Gauge
	ConsecutiveFailures prometheus.Gauge
	BackoffSeconds      prometheus.Gauge
	SSRFBlockedTotal    prometheus.Counter
}

var defaultMetrics *Metrics

// InitMetrics registers the client's metric collectors under the given
// namespace/subsystem.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		BufferLength: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "buffer_length",
			Help:      "Current number of events held in the in-memory buffer",
		}),

		EventsTrackedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_tracked_total",
			Help:      "Total number of events admitted into the buffer",
		}),

		EventsDroppedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_dropped_total",
				Help:      "Total number of events dropped, by reason",
			},
			[]string{"reason"},
		),

		FlushTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "flush_total",
				Help:      "Total number of flush attempts by outcome",
			},
			[]string{"outcome"},
		),

		FlushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "flush_duration_seconds",
			Help:      "Duration of flush submissions",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),

		SpoolBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "spool_bytes",
			Help:      "Approximate size of the on-disk spool file",
		}),

		ConsecutiveFailures: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "consecutive_failures",
			Help:      "Current count of consecutive flush failures",
		}),

		BackoffSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "backoff_seconds",
			Help:      "Backoff delay in seconds scheduled after the most recent retryable failure",
		}),

		SSRFBlockedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ssrf_blocked_total",
			Help:      "Total number of resolutions rejected by the private-address check",
		}),
	}

	defaultMetrics = m
	return m
}

// Get returns the process-global metrics, initializing with default names
// if InitMetrics has not been called yet.
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("telemetry_client", "")
	}
	return defaultMetrics
}

// RecordFlush records the outcome and duration of a flush attempt.
func (m *Metrics) RecordFlush(outcome string, duration time.Duration) {
	m.FlushTotal.WithLabelValues(outcome).Inc()
	m.FlushDuration.Observe(duration.Seconds())
}

// RecordDropped records a dropped event, tagged by reason (e.g. "oversize"
// for an event refused at admission, "buffer_full" for the oldest buffered
// event evicted to make room).
func (m *Metrics) RecordDropped(reason string) {
	m.EventsDroppedTotal.WithLabelValues(reason).Inc()
}

// Handler returns the HTTP handler serving the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer starts a small HTTP server exposing /metrics and /health.
// It blocks; callers typically run it in its own goroutine.
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
