// Package telemetry wires OpenTelemetry tracing into the fetcher. Spans go to
// the globally registered tracer provider; with none installed they are no-ops.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// End records err on the span, if any, and ends it. Use with a named error
// result:
//
//	ctx, span := tracer.Start(ctx, "step")
//	defer func() { telemetry.End(span, err) }()
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Event adds an event to the span stored in ctx.
func Event(ctx context.Context, name string) {
	trace.SpanFromContext(ctx).AddEvent(name)
}
