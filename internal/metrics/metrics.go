// Package metrics defines the Prometheus instrumentation exposed by the
// serving pipeline, following the teacher's promauto + namespaced metric
// naming convention.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter/histogram the request pipeline and reload
// coordinator update.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	ReloadsTotal    *prometheus.CounterVec
	LiveReloadConns prometheus.Gauge
}

// New registers and returns a fresh Metrics against registry.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shove_http_requests_total",
			Help: "Total HTTP requests served, labeled by method and status class.",
		}, []string{"method", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shove_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),

		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "shove_page_cache_hits_total",
			Help: "Page cache read-through hits.",
		}),

		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "shove_page_cache_misses_total",
			Help: "Page cache read-through misses.",
		}),

		ReloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shove_catalog_reloads_total",
			Help: "Catalog reload attempts, labeled by catalog and outcome.",
		}, []string{"catalog", "outcome"}),

		LiveReloadConns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "shove_live_reload_connections",
			Help: "Currently connected live-reload websocket clients.",
		}),
	}
}
