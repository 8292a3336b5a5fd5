package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the lookup API
// and the snapshot refresh pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	snapshotRows    *prometheus.GaugeVec
	snapshotLoaded  prometheus.Gauge
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "emr_table_fetch_duration_seconds",
		Help:    "Duration of table fetches from the external source",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"table", "result"})

	refreshTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emr_snapshot_refresh_total",
		Help: "Snapshot refresh attempts by result",
	}, []string{"result"})

	refreshDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "emr_snapshot_refresh_duration_seconds",
		Help:    "Duration of complete snapshot rebuilds",
		Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	snapshotRows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "emr_snapshot_rows",
		Help: "Row counts of the published snapshot",
	}, []string{"kind"})

	snapshotLoaded := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "emr_snapshot_loaded_timestamp_seconds",
		Help: "Unix time the published snapshot was built",
	})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, fetchDuration, refreshTotal, refreshDuration,
		snapshotRows, snapshotLoaded, cacheLatency, cacheWrite, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		fetchDuration:   fetchDuration,
		refreshTotal:    refreshTotal,
		refreshDuration: refreshDuration,
		snapshotRows:    snapshotRows,
		snapshotLoaded:  snapshotLoaded,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveTableFetch records one fetch attempt against the table source.
func (m *MetricsService) ObserveTableFetch(table, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(table, result).Observe(duration.Seconds())
}

// RecordRefresh counts a refresh outcome and its duration.
func (m *MetricsService) RecordRefresh(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(result).Inc()
	m.refreshDuration.Observe(duration.Seconds())
}

// SetSnapshot publishes row counts for the snapshot now serving.
func (m *MetricsService) SetSnapshot(officers, complaints, links, rows int, loadedAt time.Time) {
	if m == nil {
		return
	}
	m.snapshotRows.WithLabelValues("officers").Set(float64(officers))
	m.snapshotRows.WithLabelValues("complaints").Set(float64(complaints))
	m.snapshotRows.WithLabelValues("links").Set(float64(links))
	m.snapshotRows.WithLabelValues("reconciled").Set(float64(rows))
	m.snapshotLoaded.Set(float64(loadedAt.Unix()))
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}
