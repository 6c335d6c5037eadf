package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the tracking channel.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	locationsTotal  prometheus.Counter
	activeTopics    prometheus.Gauge
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

	locationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracking_location_updates_total",
		Help: "Total location updates fanned out on campaign topics",
	})

	activeTopics := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracking_active_topics",
		Help: "Campaign topics with at least one subscriber",
	})

	registry.MustRegister(requestDuration, requestTotal, locationsTotal, activeTopics)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		locationsTotal:  locationsTotal,
		activeTopics:    activeTopics,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records a request observation.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, fmt.Sprintf("%d", status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// IncLocationUpdate counts one fanned-out location update.
func (s *MetricsService) IncLocationUpdate() {
	s.locationsTotal.Inc()
}

// SetActiveTopics records the current number of subscribed campaign topics.
func (s *MetricsService) SetActiveTopics(n int) {
	s.activeTopics.Set(float64(n))
}
