package core

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDKey is a custom context key type for storing the request ID in context.
type RequestIDKey struct{}

// FlowIDKey is a custom context key type for storing the authorization flow ID in context.
type FlowIDKey struct{}

// WithRequestID returns a new context with a generated request ID set.
func WithRequestID(ctx context.Context) context.Context {
	reqID := uuid.New().String()
	return context.WithValue(ctx, RequestIDKey{}, reqID)
}

// WithFlowID returns a new context carrying the given authorization flow ID.
func WithFlowID(ctx context.Context, flowID string) context.Context {
	return context.WithValue(ctx, FlowIDKey{}, flowID)
}

// FlowIDFromContext retrieves the authorization flow ID from the context.
// Returns an empty string if no flow ID is set.
func FlowIDFromContext(ctx context.Context) string {
	flowID, _ := ctx.Value(FlowIDKey{}).(string)
	return flowID
}

// NewFlowID generates a new random authorization flow ID.
func NewFlowID() string {
	return uuid.New().String()
}

// LoggerFromCtx returns a slog.Logger with request_id and flow_id fields if present in context,
// plus trace_id and span_id when the context carries a valid span.
// If none is found, it returns the default logger.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if reqID, _ := ctx.Value(RequestIDKey{}).(string); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if flowID := FlowIDFromContext(ctx); flowID != "" {
		logger = logger.With("flow_id", flowID)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With("trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}
	return logger
}
