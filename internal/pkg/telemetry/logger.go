// Package telemetry wires structured logging and tracing for the checkout
// service: a JSON slog handler that stamps every record with the active
// trace/span ids, and an OTLP tracer initialised once in main().
package telemetry

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// ContextHandler decorates every log record with the TraceID and SpanID of
// the span active in the context, so settlement logs can be joined with
// their traces.
type ContextHandler struct {
	slog.Handler
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
	}
	if sc.HasSpanID() {
		r.AddAttrs(slog.String("span_id", sc.SpanID().String()))
	}
	return h.Handler.Handle(ctx, r)
}

// InitLogger installs the global slog logger: JSON to stderr, tagged with
// the service name, trace-aware.
func InitLogger(serviceName string) {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger := slog.New(&ContextHandler{Handler: handler}).With("service", serviceName)
	slog.SetDefault(logger)
}
