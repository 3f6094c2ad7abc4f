// Package metrics provides Prometheus metrics for filepane.
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
	// Engine operation metrics
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filepane_operations_total",
			Help: "Total engine operations by result",
		},
		[]string{"operation", "result"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filepane_operation_duration_seconds",
			Help:    "Engine operation duration in seconds, simulated delay included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	entriesListed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filepane_entries_listed",
			Help: "Number of entries in the current listing",
		},
	)

	// Storage metrics
	storeSaveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filepane_store_save_duration_seconds",
			Help:    "Namespace blob save duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	storeSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filepane_store_saves_total",
			Help: "Total namespace blob saves",
		},
		[]string{"backend", "status"},
	)

	remoteRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filepane_remote_update_retries_total",
			Help: "Conditional writes retried after a version conflict",
		},
	)

	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filepane_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filepane_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordOperation records one engine operation.
func RecordOperation(op string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	operationsTotal.WithLabelValues(op, result).Inc()
	operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// SetEntriesListed sets the size of the current listing.
func SetEntriesListed(n int) {
	entriesListed.Set(float64(n))
}

// RecordStoreSave records a blob save on the given backend.
func RecordStoreSave(backend string, duration time.Duration, success bool) {
	storeSaveDuration.WithLabelValues(backend).Observe(duration.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	storeSavesTotal.WithLabelValues(backend, status).Inc()
}

// RecordRemoteRetry counts a conditional write retried after a conflict.
func RecordRemoteRetry() {
	remoteRetriesTotal.Inc()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordHTTPRequest(r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}
