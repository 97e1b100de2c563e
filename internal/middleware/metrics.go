package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/galihcitta/number-warming-service/internal/metrics"
)

// PrometheusMiddleware records API request metrics. Unmatched routes are
// grouped under one label to keep cardinality bounded.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		statusCode := strconv.Itoa(c.Writer.Status())

		metrics.IncrementAPIRequests(c.Request.Method, endpoint, statusCode)
		metrics.RecordAPIRequestDuration(c.Request.Method, endpoint, time.Since(start).Seconds())
	}
}
