package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/internal/stats"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	storeDuration   *prometheus.HistogramVec
	storeErrors     *prometheus.CounterVec
	authDecisions   *prometheus.CounterVec
	usersByRole     *prometheus.GaugeVec
	collectionSize  *prometheus.GaugeVec
	integrityErrors *prometheus.CounterVec
	refreshes       *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "record_store_operation_seconds",
		Help:    "Duration of record store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "key"})

	storeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "record_store_errors_total",
		Help: "Record store operations that returned an error",
	}, []string{"op", "key"})

	authDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authorization_decisions_total",
		Help: "Authorization gate outcomes",
	}, []string{"permission", "outcome"})

	usersByRole := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "unigrading_users",
		Help: "Registered users per role as of the last refresh",
	}, []string{"role"})

	collectionSize := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "unigrading_collection_records",
		Help: "Records per collection as of the last refresh",
	}, []string{"collection"})

	integrityErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "data_integrity_errors_total",
		Help: "Corrupted store entries detected",
	}, []string{"key"})

	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stats_refresh_total",
		Help: "Polling refresh cycles",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		storeDuration, storeErrors, authDecisions, usersByRole, collectionSize, integrityErrors, refreshes, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		storeDuration:   storeDuration,
		storeErrors:     storeErrors,
		authDecisions:   authDecisions,
		usersByRole:     usersByRole,
		collectionSize:  collectionSize,
		integrityErrors: integrityErrors,
		refreshes:       refreshes,
	}
}

// Registry exposes the underlying registry for tests.
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

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveStoreOperation satisfies repository.StoreObserver.
func (m *MetricsService) ObserveStoreOperation(op, key string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(op, key).Observe(duration.Seconds())
	if err != nil {
		m.storeErrors.WithLabelValues(op, key).Inc()
	}
}

// RecordAuthorization counts an authorization outcome.
func (m *MetricsService) RecordAuthorization(perm models.Permission, allowed bool) {
	if m == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.authDecisions.WithLabelValues(string(perm), outcome).Inc()
}

// RecordIntegrityError counts a corrupted entry by collection or "user".
func (m *MetricsService) RecordIntegrityError(key string) {
	if m == nil {
		return
	}
	m.integrityErrors.WithLabelValues(key).Inc()
}

// RecordRefresh counts one polling cycle.
func (m *MetricsService) RecordRefresh(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

// SetCollectionGauges publishes role and collection sizes.
func (m *MetricsService) SetCollectionGauges(users []models.User, classrooms, grades int) {
	if m == nil {
		return
	}
	for role, n := range stats.RoleDistribution(users) {
		m.usersByRole.WithLabelValues(string(role)).Set(float64(n))
	}
	m.collectionSize.WithLabelValues(string(models.CollectionUsers)).Set(float64(len(users)))
	m.collectionSize.WithLabelValues(string(models.CollectionClassrooms)).Set(float64(classrooms))
	m.collectionSize.WithLabelValues(string(models.CollectionGrades)).Set(float64(grades))
}
