package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Module labels a log record with the subsystem that produced it.
type Module string

// Environment selects the log output format.
type Environment string

const (
	EnvDev  Environment = "dev"
	EnvProd Environment = "prod"
)

// ServiceInfo identifies the running service in every log record.
type ServiceInfo struct {
	Name     string
	Version  string
	Revision string
}

type contextKey string

const requestIDKey contextKey = "request_id"

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// ValidateAndExtractRequestID returns the given request ID when it is usable,
// otherwise a freshly generated one.
func ValidateAndExtractRequestID(requestID string) string {
	if requestID == "" || len(requestID) > 128 {
		return uuid.NewString()
	}
	return requestID
}

// NewLogger builds the service-wide slog logger. Dev environments get
// human-readable text output, everything else gets JSON.
func NewLogger(info ServiceInfo, env Environment, level slog.Level, defaultModule Module, gcpProjectID string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if env == EnvDev {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	attrs := []slog.Attr{
		slog.String("service", info.Name),
		slog.String("version", info.Version),
		slog.String("module", string(defaultModule)),
	}
	if info.Revision != "" {
		attrs = append(attrs, slog.String("revision", info.Revision))
	}

	return slog.New(&contextHandler{
		inner:        handler.WithAttrs(attrs),
		gcpProjectID: gcpProjectID,
	})
}

// contextHandler enriches records with request-scoped attributes carried in
// the context.
type contextHandler struct {
	inner        slog.Handler
	gcpProjectID string
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, record slog.Record) error {
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		record.AddAttrs(slog.String("request_id", requestID))
	}
	record.AddAttrs(gcpTraceAttrs(ctx, h.gcpProjectID)...)
	return h.inner.Handle(ctx, record)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{inner: h.inner.WithAttrs(attrs), gcpProjectID: h.gcpProjectID}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{inner: h.inner.WithGroup(name), gcpProjectID: h.gcpProjectID}
}
