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
	// QuotesTotal counts pricing invocations, partitioned by product.
	QuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_quotes_total",
		Help: "Total number of loan quotes priced",
	}, []string{"product"})

	// QuoteLatency tracks end-to-end pricing latency per product.
	QuoteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricing_quote_latency_seconds",
		Help:    "Loan pricing latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"product"})

	// ValidationFailures counts rejected requests by offending field.
	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_validation_failures_total",
		Help: "Requests rejected by validation",
	}, []string{"field"})

	// BreakevenNotReached counts quotes whose breakeven fell outside the
	// tenor. A rising rate signals mispriced upfront costs.
	BreakevenNotReached = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricing_breakeven_not_reached_total",
		Help: "Bucket results with breakeven beyond the loan tenor",
	})

	// BatchRows counts batch upload rows by outcome.
	BatchRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_batch_rows_total",
		Help: "Batch upload rows processed",
	}, []string{"status"})

	// WebSocketClients tracks connected market-feed clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pricing_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricing_http_request_duration_seconds",
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

		// Use the raw path for the label; the API surface is small enough
		// that cardinality stays bounded.
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
