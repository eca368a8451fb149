package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airmap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "airmap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "airmap",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// View-state machine metrics
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airmap",
		Subsystem: "view",
		Name:      "transitions_total",
		Help:      "Applied view-state transitions by path",
	}, []string{"path"})

	TransitionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airmap",
		Subsystem: "view",
		Name:      "transition_errors_total",
		Help:      "View-state transitions that failed and were recovered",
	}, []string{"path"})

	// Asset-tree fetch metrics
	AssetFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airmap",
		Subsystem: "assets",
		Name:      "fetches_total",
		Help:      "Asset fetches issued against the data tree",
	}, []string{"kind"})

	AssetFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airmap",
		Subsystem: "assets",
		Name:      "fetch_errors_total",
		Help:      "Asset fetches that returned no usable payload",
	}, []string{"kind"})

	RasterDecodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "airmap",
		Subsystem: "assets",
		Name:      "raster_decode_duration_seconds",
		Help:      "Duration of raster asset unpacking into band arrays",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airmap",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airmap",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "airmap",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of connected map surfaces",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
