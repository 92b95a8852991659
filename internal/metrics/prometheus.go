// Package metrics exposes Prometheus instrumentation for the validation and
// signing flows.
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
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	validationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expediente_validations_total",
			Help: "Total number of validation runs",
		},
		[]string{"mode", "conclusion"},
	)

	validationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "expediente_validation_duration_seconds",
			Help:    "Validation run duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)

	signingOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signing_operations_total",
			Help: "Total number of JAdES signing operations",
		},
		[]string{"phase", "status"},
	)

	// Oracle metrics
	oracleRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dss_requests_total",
			Help: "Total number of requests to the DSS oracle",
		},
		[]string{"operation", "status"},
	)

	oracleRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dss_request_duration_seconds",
			Help:    "DSS oracle request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RecordValidation records one completed validation run.
func RecordValidation(mode string, conclusion bool, duration time.Duration) {
	validationsTotal.WithLabelValues(mode, strconv.FormatBool(conclusion)).Inc()
	validationDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordSigningOperation records one signing phase outcome.
func RecordSigningOperation(phase string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	signingOperationsTotal.WithLabelValues(phase, status).Inc()
}

// RecordOracleRequest records one DSS round trip.
func RecordOracleRequest(operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	oracleRequestsTotal.WithLabelValues(operation, status).Inc()
	oracleRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
