package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pdv/backend/internal/infrastructure/logger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wraps otelgin, naming spans after the route pattern.
// Health and metrics probes are not traced.
func Tracing(serviceName string, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			switch r.URL.Path {
			case "/health", "/health/details", "/metrics":
				return false
			}
			return true
		}),
	)
}

// SpanAttributes tags the request span with request, company and user ids
// and marks error responses. It belongs after JWTAuth so the tenant is known.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		for _, key := range []string{logger.GinRequestIDKey, logger.GinCompanyIDKey, logger.GinUserIDKey} {
			if v := c.GetString(key); v != "" {
				span.SetAttributes(attribute.String(key, v))
			}
		}
		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
