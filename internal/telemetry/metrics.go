package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// MetricFamily aliases the wire model so callers don't import the
// prometheus data model directly.
type MetricFamily = dto.MetricFamily

// Metrics holds the Prometheus collectors for the MAC pipeline.
type Metrics struct {
	registry *prometheus.Registry

	// Backtest pipeline
	DatesProcessed prometheus.Counter
	DegradedRows   prometheus.Counter
	DateDuration   prometheus.Histogram
	RunsTotal      *prometheus.CounterVec

	// Snapshot retrieval
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	SourceRequests *prometheus.CounterVec
	SourceErrors   *prometheus.CounterVec
	BreakerOpen    prometheus.Gauge
}

// NewMetrics creates and registers all collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.DatesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "macindex_backtest_dates_total",
		Help: "Backtest dates processed",
	})
	m.DegradedRows = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "macindex_backtest_degraded_rows_total",
		Help: "Rows recorded with maximal missingness after a per-date failure",
	})
	m.DateDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "macindex_backtest_date_duration_seconds",
		Help:    "Per-date pipeline duration in seconds",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})
	m.RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "macindex_backtest_runs_total",
		Help: "Backtest runs by outcome",
	}, []string{"outcome"})

	m.CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "macindex_snapshot_cache_hits_total",
		Help: "Snapshot cache hits by backend",
	}, []string{"backend"})
	m.CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "macindex_snapshot_cache_misses_total",
		Help: "Snapshot cache misses by backend",
	}, []string{"backend"})
	m.SourceRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "macindex_source_requests_total",
		Help: "Upstream indicator source requests by source name",
	}, []string{"source"})
	m.SourceErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "macindex_source_errors_total",
		Help: "Upstream indicator source errors by source name",
	}, []string{"source"})
	m.BreakerOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "macindex_source_breaker_open",
		Help: "1 when the indicator source circuit breaker is open",
	})

	m.registry.MustRegister(
		m.DatesProcessed, m.DegradedRows, m.DateDuration, m.RunsTotal,
		m.CacheHits, m.CacheMisses, m.SourceRequests, m.SourceErrors, m.BreakerOpen,
	)
	return m
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather returns the current metric families, for tests and debug output.
func (m *Metrics) Gather() ([]*MetricFamily, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	return families, nil
}
