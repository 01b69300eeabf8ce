package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/pdv/backend/internal/infrastructure/logger"
	"github.com/pdv/backend/internal/infrastructure/telemetry"
)

// Profiling attaches route, method and company pprof labels to the handler
// goroutine so Pyroscope profiles can be sliced per endpoint or tenant.
func Profiling(profiler *telemetry.Profiler) gin.HandlerFunc {
	if profiler == nil || !profiler.Enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		labels := map[string]string{
			"route":      c.FullPath(),
			"method":     c.Request.Method,
			"company_id": c.GetString(logger.GinCompanyIDKey),
		}
		telemetry.WithLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
