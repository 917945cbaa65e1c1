package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements store.MetricsCollector using Prometheus
type Collector struct {
	storageOps       *prometheus.CounterVec
	storageOpLatency *prometheus.HistogramVec
	failovers        prometheus.Counter
	backendConnected prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *Collector {
	return &Collector{
		storageOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jarvais_storage_ops_total",
				Help: "Total number of storage operations by backend and outcome",
			},
			[]string{"op", "backend", "status"},
		),
		storageOpLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jarvais_storage_op_duration_seconds",
				Help:    "Storage operation duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3},
			},
			[]string{"op", "backend"},
		),
		failovers: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jarvais_storage_failovers_total",
				Help: "Total number of failovers from redis to in-memory storage",
			},
		),
		backendConnected: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "jarvais_storage_backend_connected",
				Help: "1 when the redis backend is active, 0 when degraded to memory",
			},
		),
		httpRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jarvais_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jarvais_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path"},
		),
	}
}

// RecordStorageOp records one storage operation outcome and its duration
func (c *Collector) RecordStorageOp(op, backend, status string, duration time.Duration) {
	c.storageOps.WithLabelValues(op, backend, status).Inc()
	c.storageOpLatency.WithLabelValues(op, backend).Observe(duration.Seconds())
}

// RecordFailover records a downgrade from redis to in-memory storage
func (c *Collector) RecordFailover() {
	c.failovers.Inc()
}

// SetBackendConnected records whether the redis backend is currently active
func (c *Collector) SetBackendConnected(connected bool) {
	if connected {
		c.backendConnected.Set(1)
	} else {
		c.backendConnected.Set(0)
	}
}

// RecordHTTPRequest records one HTTP request outcome and its duration
func (c *Collector) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, path, status).Inc()
	c.httpLatency.WithLabelValues(method, path).Observe(duration.Seconds())
}
