// Package metrics provides Prometheus instrumentation for the pricing engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PricingRequests counts pricing calls, partitioned by option type
	// and outcome (ok, invalid_terms, domain_error, cancelled).
	PricingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atmx_pricing_requests_total",
		Help: "Total option pricing requests",
	}, []string{"type", "outcome"})

	// PricingLatency tracks end-to-end pricing call duration.
	PricingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atmx_pricing_latency_seconds",
		Help:    "Option pricing latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	// SimulationsTotal counts Monte Carlo trials executed.
	SimulationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atmx_pricing_simulations_total",
		Help: "Cumulative Monte Carlo trials executed",
	})

	// DomainErrors counts pricing calls that hit a numerical domain error.
	DomainErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atmx_pricing_domain_errors_total",
		Help: "Pricing calls rejected by numerical domain guards",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atmx_pricing_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atmx_pricing_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
