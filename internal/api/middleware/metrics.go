package middleware

import (
	"strconv"
	"time"

	"github.com/freellm/freellm-backend-go/internal/core/metrics"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request counts and latencies. The route
// template is used as the path label to keep cardinality bounded.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		metrics.HTTPRequests.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		metrics.HTTPDuration.WithLabelValues(
			c.Request.Method, path,
		).Observe(time.Since(start).Seconds())
	}
}
