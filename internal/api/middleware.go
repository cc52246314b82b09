package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/creatist/postfeed/pkg/telemetry"
)

const (
	// UserIDHeader carries the caller id set by the authenticating gateway
	UserIDHeader = "X-User-ID"

	callerKey = "postfeed.caller"
)

// Identity reads the already authenticated caller from UserIDHeader. A
// missing or malformed header leaves the request anonymous.
func Identity(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := strings.TrimSpace(c.GetHeader(UserIDHeader)); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil || id == uuid.Nil {
				logger.Debug("Ignoring malformed caller id", zap.String("header", raw))
			} else {
				c.Set(callerKey, id)
			}
		}
		c.Next()
	}
}

// callerID returns the authenticated caller, if any
func callerID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// requireCaller returns the caller or errUnauthenticated
func requireCaller(c *gin.Context) (uuid.UUID, error) {
	id, ok := callerID(c)
	if !ok {
		return uuid.Nil, errUnauthenticated
	}
	return id, nil
}

// Tracing starts a server span per request, continuing an upstream trace
// when one is propagated.
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx, span := telemetry.StartSpan(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
			))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}

// RequestLogger logs one line per request
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if id, ok := callerID(c); ok {
			fields = append(fields, zap.String("user_id", id.String()))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if c.Writer.Status() >= 500 {
			logger.Error("Request failed", fields...)
			return
		}
		logger.Info("Request handled", fields...)
	}
}
