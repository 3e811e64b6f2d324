package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flicky/go-marketplace-api/internal/model"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	ordersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_orders_created_total",
			Help: "Total number of orders placed",
		},
		[]string{"payment_method"},
	)

	ordersCancelledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_orders_cancelled_total",
			Help: "Total number of orders cancelled",
		},
	)

	orderEventsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_order_events_processed_total",
			Help: "Order events handled by the worker",
		},
		[]string{"type", "result"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(ordersCreatedTotal)
	prometheus.MustRegister(ordersCancelledTotal)
	prometheus.MustRegister(orderEventsProcessedTotal)
}

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			// unmatched routes share one label
			path = "unmatched"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func RecordOrderCreated(method model.PaymentMethod) {
	ordersCreatedTotal.WithLabelValues(string(method)).Inc()
}

func RecordOrderCancelled() {
	ordersCancelledTotal.Inc()
}

// RecordEventProcessed counts a worker outcome: "ok", "duplicate" or "failed".
func RecordEventProcessed(eventType, result string) {
	orderEventsProcessedTotal.WithLabelValues(eventType, result).Inc()
}
