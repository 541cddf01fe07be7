package oteltrace

import (
	"context"

	"github.com/stylecommerce/marketplace/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracer struct{ t trace.Tracer }

// New wraps the globally registered OpenTelemetry tracer for the given
// instrumentation scope behind the application's Tracer port.
func New(scope string) observability.Tracer {
	return &tracer{t: otel.Tracer(scope)}
}

func (tr *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{}
	if len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	return tr.t.Start(ctx, name, opts...)
}
