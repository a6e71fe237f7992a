package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	snapshotHits    prometheus.Counter
	snapshotMisses  prometheus.Counter
	punchTotal      *prometheus.CounterVec
}

// NewMetricsService registers the core collectors.
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

	snapshotHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snapshot_fallback_hits_total",
		Help: "Reads served from the Redis snapshot after a database failure",
	})

	snapshotMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snapshot_fallback_misses_total",
		Help: "Database failures with no snapshot to fall back on",
	})

	punchTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "punches_total",
		Help: "Accepted punches by direction and status",
	}, []string{"clock_type", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, snapshotHits, snapshotMisses, punchTotal, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		snapshotHits:    snapshotHits,
		snapshotMisses:  snapshotMisses,
		punchTotal:      punchTotal,
	}
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

// RecordSnapshotFallback counts a degraded read.
func (m *MetricsService) RecordSnapshotFallback(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.snapshotHits.Inc()
	} else {
		m.snapshotMisses.Inc()
	}
}

// RecordPunch counts an accepted punch.
func (m *MetricsService) RecordPunch(clockType, status string) {
	if m == nil {
		return
	}
	m.punchTotal.WithLabelValues(clockType, status).Inc()
}
