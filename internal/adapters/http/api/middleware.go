package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/cdtimeline/pkg/metrics"
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Microseconds()) / 1000
		statusCodeStr := strconv.Itoa(wrapped.statusCode)

		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)

		if wrapped.statusCode >= http.StatusBadRequest {
			kind := wrapped.errorCode()
			metrics.RecordErrorByEndpoint(endpoint, r.Method, kind)
			metrics.RecordErrorByType(kind, severityOf(kind))
			metrics.RecordErrorLatency("http", kind, durationMs)
		}
	}
}

func severityOf(code string) string {
	if code == "internal_error" {
		return "high"
	}
	return "medium"
}

// responseWriter wraps http.ResponseWriter to capture the status and the
// error code a handler answered with.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	code       string
}

// errorCode returns the code set by writeError. Bare router answers such as
// http.NotFound carry none and are named after their status.
func (rw *responseWriter) errorCode() string {
	if rw.code != "" {
		return rw.code
	}
	switch {
	case rw.statusCode >= http.StatusInternalServerError:
		return "internal_error"
	case rw.statusCode == http.StatusNotFound:
		return "not_found"
	default:
		return "bad_request"
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
