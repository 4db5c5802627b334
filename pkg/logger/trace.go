package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TraceIDFromContext extracts the TraceID from the span context, if available.
func TraceIDFromContext(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().HasTraceID() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}

// TraceField is the zap field every handler log line carries.
func TraceField(ctx context.Context) zap.Field {
	return zap.String("traceID", TraceIDFromContext(ctx))
}
