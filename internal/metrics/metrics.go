package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Lifecycle operations by operation (transition, mark_won, clear_won),
	// target status and outcome.
	ticketLifecycleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_lifecycle_operations_total",
			Help: "Ticket lifecycle operations partitioned by operation, target and outcome",
		},
		[]string{"operation", "target", "outcome"},
	)

	ticketWonRevenue = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticket_won_revenue_total",
			Help: "Sum of total service amounts of tickets marked won",
		},
	)
)

// Outcomes recorded for lifecycle operations.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeInvalid   = "invalid"
	OutcomeBusy      = "busy"
	OutcomeFailed    = "failed"
	OutcomePartial   = "partial"
)

func ObserveLifecycle(operation, target, outcome string) {
	ticketLifecycleTotal.WithLabelValues(operation, target, outcome).Inc()
}

func ObserveWonRevenue(amount float64) {
	if amount > 0 {
		ticketWonRevenue.Add(amount)
	}
}

// Middleware records request counts and latencies. The matched route template
// is used as the label to keep cardinality low.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		labels := prometheus.Labels{
			"method": c.Request.Method,
			"route":  route,
			"status": strconv.Itoa(c.Writer.Status()),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
