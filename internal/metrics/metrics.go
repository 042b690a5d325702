// Package metrics exposes prometheus collectors for fixture generation and
// the read API.
//
// Each Metrics value owns its own registry, so tests and multiple servers in
// one process never collide on the global default registerer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vaultline/bankfixture/internal/domain"
)

const namespace = "bankfixture"

// Metrics holds every collector the service records.
type Metrics struct {
	registry *prometheus.Registry

	generationSeconds prometheus.Histogram
	generations       *prometheus.CounterVec
	tableRows         *prometheus.GaugeVec
	anomalies         *prometheus.GaugeVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_seconds",
			Help:      "Wall time of one dataset generation run.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generation runs by outcome.",
		}, []string{"outcome"}),
		tableRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "table_rows",
			Help:      "Rows per table in the most recently generated dataset.",
		}, []string{"table"}),
		anomalies: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "manifest_entries",
			Help:      "Planted anomalies per pattern in the most recently generated dataset.",
		}, []string{"pattern"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		m.generationSeconds,
		m.generations,
		m.tableRows,
		m.anomalies,
		m.httpRequests,
		m.httpDuration,
		prometheus.NewGoCollector(),
	)
	return m
}

// RecordGeneration records the outcome of one run. ds may be nil when the
// run failed.
func (m *Metrics) RecordGeneration(ds *domain.Dataset, elapsed time.Duration, err error) {
	m.generationSeconds.Observe(elapsed.Seconds())
	if err != nil {
		m.generations.WithLabelValues("error").Inc()
		return
	}
	m.generations.WithLabelValues("ok").Inc()
	for table, n := range ds.TableCounts() {
		m.tableRows.WithLabelValues(table).Set(float64(n))
	}
	for _, pt := range domain.Patterns {
		m.anomalies.WithLabelValues(string(pt)).Set(float64(len(ds.Manifest.ByPattern(pt))))
	}
}

// ObserveHTTP records one served request. route is the matched pattern, not
// the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
