package middleware

import (
	"log/slog"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/medplan/reminder-engine/internal/observability/logging"
	"github.com/medplan/reminder-engine/internal/observability/metrics"
)

type GinConfig struct {
	SkipPaths []string
	Module    logging.Module
	// Worker marks a service driven by queued jobs rather than user traffic,
	// which changes how the job name is resolved for logging.
	Worker          bool
	TracerName      string
	JobNameResolver func(c *gin.Context) string
	HTTPMetrics     *metrics.HTTPMetrics
}

// Gin returns the request middleware: request-id propagation, a server span
// per request, HTTP metrics and an access log line.
func Gin(cfg GinConfig) gin.HandlerFunc {
	tracer := otel.Tracer(cfg.TracerName)

	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		requestID := logging.ValidateAndExtractRequestID(c.Request.Header.Get("x-request-id"))
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		c.Writer.Header().Set("x-request-id", requestID)

		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(c.Request.Header))

		spanName := c.Request.Method + " " + c.FullPath()
		if cfg.Worker && cfg.JobNameResolver != nil {
			spanName = cfg.JobNameResolver(c)
		}

		ctx, span := tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", c.FullPath()),
				attribute.String("module", string(cfg.Module)),
				attribute.String("request_id", requestID),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		if cfg.HTTPMetrics != nil {
			cfg.HTTPMetrics.RecordRequestStart(ctx)
		}

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))

		if cfg.HTTPMetrics != nil {
			cfg.HTTPMetrics.RecordRequestEnd(ctx, c.Request.Method, c.FullPath(), status, duration)
		}

		logFn := slog.InfoContext
		if status >= 500 {
			logFn = slog.ErrorContext
		} else if status >= 400 {
			logFn = slog.WarnContext
		}
		logFn(ctx, "request completed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", duration),
		)
	}
}

// PanicRecoveryGin converts handler panics into 500 responses with a logged
// stack reference instead of crashing the process.
func PanicRecoveryGin() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(c.Request.Context(), "panic recovered",
					slog.Any("panic", r),
					slog.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(500, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
