package umlsm

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/anggasct/umlsm"

// startSpan opens the span wrapping one executor operation
func (e *Executor[C]) startSpan(ctx context.Context, op string, ev Event) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	attrs := []attribute.KeyValue{
		attribute.String("umlsm.machine", e.machine.id),
		attribute.String("umlsm.executor", e.id),
	}
	if ev != nil {
		attrs = append(attrs, attribute.String("umlsm.event", ev.Name()))
	}
	return e.tracer.Start(ctx, "umlsm."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
