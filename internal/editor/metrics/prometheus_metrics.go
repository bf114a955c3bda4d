package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// Label values
const (
	StatusSuccess = "success"
	StatusError   = "error"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// PrometheusMetrics holds the editor collectors in a private registry
type PrometheusMetrics struct {
	httpHandler fasthttp.RequestHandler
	logger      *zap.Logger

	apiRequestsTotal   *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec
	savesTotal         *prometheus.CounterVec
	auditScore         prometheus.Histogram
	catalogCacheTotal  *prometheus.CounterVec
}

func NewPrometheusMetrics(namespace string, logger *zap.Logger) *PrometheusMetrics {
	return NewPrometheusMetricsWithRegistry(namespace, prometheus.NewRegistry(), logger)
}

func NewPrometheusMetricsWithRegistry(namespace string, registry *prometheus.Registry, logger *zap.Logger) *PrometheusMetrics {
	if namespace == "" {
		namespace = "seoeditor"
	}

	pm := &PrometheusMetrics{logger: logger}

	pm.apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests by action and outcome",
		},
		[]string{"action", "status"},
	)

	pm.apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	pm.savesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Total number of page saves",
		},
		[]string{"status"},
	)

	pm.auditScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audit_score",
			Help:      "Distribution of page audit scores",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		},
	)

	pm.catalogCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Catalog score cache lookups by result",
		},
		[]string{"result"},
	)

	registry.MustRegister(
		pm.apiRequestsTotal,
		pm.apiRequestDuration,
		pm.savesTotal,
		pm.auditScore,
		pm.catalogCacheTotal,
	)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
	pm.httpHandler = fasthttpadaptor.NewFastHTTPHandler(handler)

	logger.Info("Prometheus metrics initialized", zap.String("namespace", namespace))

	return pm
}

func (pm *PrometheusMetrics) RecordAPIRequest(action, status string, duration time.Duration) {
	pm.apiRequestsTotal.WithLabelValues(action, status).Inc()
	pm.apiRequestDuration.WithLabelValues(action).Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) RecordSave(status string) {
	pm.savesTotal.WithLabelValues(status).Inc()
}

func (pm *PrometheusMetrics) RecordAuditScore(score int) {
	pm.auditScore.Observe(float64(score))
}

func (pm *PrometheusMetrics) RecordCatalogCache(result string) {
	pm.catalogCacheTotal.WithLabelValues(result).Inc()
}

// ServeHTTP exposes the registry in the Prometheus text format
func (pm *PrometheusMetrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	pm.httpHandler(ctx)
}
