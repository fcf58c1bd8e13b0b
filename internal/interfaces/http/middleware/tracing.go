package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/meterbill/backend/internal/infrastructure/logger"
)

// Tracing returns the OpenTelemetry request middleware. Each request
// span carries the request and tenant identity alongside the HTTP
// attributes otelgin records, so traces line up with the access log.
func Tracing(serviceName string, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}

	base := otelgin.Middleware(serviceName)
	return func(c *gin.Context) {
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if requestID := c.GetString(RequestIDKey); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if tenantID := logger.GetTenantID(c.Request.Context()); tenantID != "" {
			span.SetAttributes(attribute.String("tenant_id", tenantID))
		}
	}
}
