// Package metrics объявляет Prometheus-метрики сервиса. Все метрики регистрируются
// в registry по умолчанию и отдаются на /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Рекомендации
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_served_total",
			Help: "Total number of successful recommendation responses",
		},
		[]string{"cached"},
	)

	RecommendationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_errors_total",
			Help: "Total number of failed recommendation requests by error kind",
		},
		[]string{"kind"}, // "invalid_input", "unavailable", "processing"
	)

	ServiceReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommendation_service_ready",
			Help: "1 when catalog, model and index are loaded",
		},
	)

	// Бэкбон
	BackboneRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backbone_requests_total",
			Help: "Total number of feature backbone RPCs",
		},
		[]string{"method", "result"}, // result: "success", "failure", "rejected"
	)

	BackboneDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backbone_request_duration_seconds",
			Help:    "Feature backbone RPC latency in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		},
		[]string{"method"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Кэш
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)
)

// RecordHTTPRequest записывает счетчик и длительность одного HTTP-запроса.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordBackboneCall записывает результат и длительность вызова бэкбона.
func RecordBackboneCall(method, result string, duration time.Duration) {
	BackboneRequests.WithLabelValues(method, result).Inc()
	BackboneDuration.WithLabelValues(method).Observe(duration.Seconds())
}
