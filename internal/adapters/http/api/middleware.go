package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/okian/trainage/pkg/metrics"
)

// HTTP status code constants.
const (
	statusBadRequest      = 400
	statusNotFound        = 404
	statusTooManyRequests = 429
	statusInternalError   = 500
)

// MetricsMiddleware records Prometheus metrics for every request.
// Requests are labelled by route template so user ids do not explode cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := c.Writer.Status()
		statusCodeStr := strconv.Itoa(status)
		durationMs := float64(time.Since(start).Microseconds()) / 1000.0

		metrics.RecordHTTPRequest(endpoint, c.Request.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, c.Request.Method, statusCodeStr, durationMs)
		if status >= statusBadRequest {
			metrics.RecordErrorByComponent("http", getErrorType(status))
		}
	}
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= statusInternalError:
		return "server_error"
	case statusCode == statusTooManyRequests:
		return "rate_limit"
	case statusCode == statusNotFound:
		return "not_found"
	case statusCode >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}
