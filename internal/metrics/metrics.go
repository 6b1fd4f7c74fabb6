// Package metrics exposes Prometheus instrumentation for the poll loop.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sentinel"

// Metrics holds the collectors on a private registry so tests and multiple
// instances never collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	cycles         *prometheus.CounterVec
	recordsFetched prometheus.Counter
	verdicts       *prometheus.CounterVec
	heartbeats     prometheus.Counter
	cursor         prometheus.Gauge
	cycleDuration  prometheus.Histogram
}

// New registers all collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Poll cycles by outcome",
	}, []string{"outcome"})
	m.recordsFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_fetched_total",
		Help:      "Records returned by the source",
	})
	m.verdicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verdicts_total",
		Help:      "Analyzer verdicts by status and escalation",
	}, []string{"status", "escalated"})
	m.heartbeats = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "heartbeats_total",
		Help:      "Heartbeat notifications sent",
	})
	m.cursor = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cursor_timestamp_seconds",
		Help:      "Unix timestamp of the current cursor",
	})
	m.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of one poll cycle",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 900},
	})

	m.registry.MustRegister(
		m.cycles, m.recordsFetched, m.verdicts,
		m.heartbeats, m.cursor, m.cycleDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCycle records one finished cycle.
func (m *Metrics) ObserveCycle(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) AddRecords(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsFetched.Add(float64(n))
}

func (m *Metrics) ObserveVerdict(status string, escalated bool) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(status, strconv.FormatBool(escalated)).Inc()
}

func (m *Metrics) HeartbeatSent() {
	if m == nil {
		return
	}
	m.heartbeats.Inc()
}

func (m *Metrics) SetCursor(cursor time.Time) {
	if m == nil || cursor.IsZero() {
		return
	}
	m.cursor.Set(float64(cursor.UnixNano()) / 1e9)
}

// NewMux returns the mux served on metrics.bind: /metrics and /healthz.
func (m *Metrics) NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
