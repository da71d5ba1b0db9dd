// Package metrics provides Prometheus metrics for HTTP server monitoring.
// It exports request totals, latency histograms, and an in-flight gauge,
// plus counters for the script workflow. All metrics are registered with
// the Prometheus default registry during package initialization.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	ScriptSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "script_saves_total",
			Help: "Script create and update operations by outcome",
		},
		[]string{"outcome"},
	)

	RequestTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "request_transitions_total",
			Help: "Script request workflow transitions by target status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(ScriptSavesTotal)
	prometheus.MustRegister(RequestTransitionsTotal)
}

// Middleware records per-request metrics. Paths are recorded as the matched
// route pattern, not the raw URL, to keep label cardinality bounded.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			HTTPRequestInFlight.Inc()
			defer HTTPRequestInFlight.Dec()

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			path := c.Path()
			method := c.Request().Method
			HTTPRequestTotals.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler exposes the default registry for scraping.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
