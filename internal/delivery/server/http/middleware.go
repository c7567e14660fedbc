package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"askview/internal/observability"
)

const requestIDHeader = "X-Request-Id"

// resolveRequestID prefers a caller-supplied id so logs line up across
// services.
func resolveRequestID(c *gin.Context) string {
	for _, header := range []string{requestIDHeader, "X-Log-Id", "X-Correlation-Id"} {
		if value := strings.TrimSpace(c.GetHeader(header)); value != "" {
			return value
		}
	}
	return uuid.NewString()
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := resolveRequestID(c)
		c.Header(requestIDHeader, requestID)
		ctx := observability.ContextWithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func tracingMiddleware(tracer *observability.TracerProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.StartSpan(c.Request.Context(), observability.SpanHTTPServer,
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", c.FullPath()),
		)
		defer span.End()

		if traceID := span.SpanContext().TraceID(); traceID.IsValid() {
			ctx = observability.ContextWithTraceID(ctx, traceID.String())
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
		}
	}
}

// accessLogMiddleware logs each request and records request metrics.
func accessLogMiddleware(logger *observability.Logger, metrics *observability.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.RecordHTTPRequest(c.Request.Context(), route, status, latency)
		logger.InfoContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}
