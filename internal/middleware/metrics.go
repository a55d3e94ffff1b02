package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registry-api/internal/service"
)

// unmatchedRoute labels requests that hit no registered route, keeping
// scanner traffic from minting one series per URL.
const unmatchedRoute = "unmatched"

// Metrics records duration and count of every request under its route
// pattern, e.g. /api/v1/courses/:id/students.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	if metrics == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
