package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	transitionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_transition_failures_total",
			Help: "State transitions rejected by a precondition, by operation and fault kind",
		},
		[]string{"operation", "kind"},
	)
)

func Metrics(reg *prometheus.Registry) gin.HandlerFunc {
	reg.MustRegister(httpRequestsTotal, httpRequestDuration, transitionFailuresTotal)

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		statusStr := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
		httpRequestDuration.WithLabelValues(method, path, statusStr).Observe(time.Since(start).Seconds())
	}
}

// ObserveTransitionFailure counts a precondition rejection.
func ObserveTransitionFailure(operation, kind string) {
	transitionFailuresTotal.WithLabelValues(operation, kind).Inc()
}
