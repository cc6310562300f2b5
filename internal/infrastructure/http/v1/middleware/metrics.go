package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPMetrics records request counts, durations and concurrency.
type HTTPMetrics interface {
	RequestStarted(ctx context.Context) func()
	ObserveHTTP(ctx context.Context, method, route string, status int, elapsed time.Duration)
}

// Metrics records every request under its route template so ids do not
// explode label cardinality.
func Metrics(m HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		done := m.RequestStarted(c.Request.Context())
		start := time.Now()

		c.Next()

		done()
		m.ObserveHTTP(c.Request.Context(), c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
