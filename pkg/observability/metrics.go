package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports hook events as Prometheus metrics. It implements [Hooks]
// and is registered with [Install], usually behind a [Tee].
//
// Each Metrics owns its registry, so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	layouts        *prometheus.CounterVec
	layoutDuration *prometheus.HistogramVec
	edgesSkipped   prometheus.Counter

	connections  *prometheus.CounterVec
	bulkItems    *prometheus.CounterVec
	bulkDuration *prometheus.HistogramVec

	cacheLookups *prometheus.CounterVec
	cacheBytes   prometheus.Counter

	storeOps      *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
}

// NewMetrics creates a collector whose metric names carry namespace.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		layouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layouts_total",
			Help:      "Layout passes by direction and outcome.",
		}, []string{"direction", "status"}),
		layoutDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_duration_seconds",
			Help:      "Layout pass duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction"}),
		edgesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layout_edges_skipped_total",
			Help:      "Edges left out of a layout because an endpoint was missing.",
		}),
		connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Connection requests by assigned category or rejection code.",
		}, []string{"category", "result"}),
		bulkItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_items_total",
			Help:      "Items touched by bulk operations.",
		}, []string{"op", "result"}),
		bulkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bulk_duration_seconds",
			Help:      "Bulk operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by key type and result.",
		}, []string{"key_type", "result"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache.",
		}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Store round trips by backend, operation and outcome.",
		}, []string{"backend", "op", "status"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Store round trip duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "op"}),
	}

	m.registry.MustRegister(
		m.httpRequests, m.httpDuration,
		m.layouts, m.layoutDuration, m.edgesSkipped,
		m.connections, m.bulkItems, m.bulkDuration,
		m.cacheLookups, m.cacheBytes,
		m.storeOps, m.storeDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request. route should be the route
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) OnLayoutStart(context.Context, string, int) {}

func (m *Metrics) OnLayoutComplete(_ context.Context, direction string, _ int, d time.Duration, err error) {
	m.layouts.WithLabelValues(direction, outcome(err)).Inc()
	m.layoutDuration.WithLabelValues(direction).Observe(d.Seconds())
}

func (m *Metrics) OnEdgeSkipped(context.Context, string) { m.edgesSkipped.Inc() }

func (m *Metrics) OnConnection(_ context.Context, category, code string) {
	result := "accepted"
	if code != "" {
		result = code
	}
	m.connections.WithLabelValues(category, result).Inc()
}

func (m *Metrics) OnBulkComplete(_ context.Context, op string, processed, failed int, d time.Duration) {
	m.bulkItems.WithLabelValues(op, "processed").Add(float64(processed))
	m.bulkItems.WithLabelValues(op, "failed").Add(float64(failed))
	m.bulkDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheLookups.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheLookups.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, _ string, size int) {
	m.cacheBytes.Add(float64(size))
}

func (m *Metrics) OnStoreOp(_ context.Context, backend, op string, d time.Duration, err error) {
	m.storeOps.WithLabelValues(backend, op, outcome(err)).Inc()
	m.storeDuration.WithLabelValues(backend, op).Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var _ Hooks = (*Metrics)(nil)
