package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyhub-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics observes every request by route template. Requests that match no
// route share one label so scanners cannot blow up series cardinality, and
// probe endpoints listed in skip are not recorded.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		skipped[path] = struct{}{}
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if _, ok := skipped[route]; ok {
			return
		}
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
