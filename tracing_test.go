package umlsm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recorder(t *testing.T) (*tracetest.SpanRecorder, Option) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, WithTracerProvider(tp)
}

func spanNames(spans []sdktrace.ReadOnlySpan) []string {
	names := make([]string, 0, len(spans))
	for _, s := range spans {
		names = append(names, s.Name())
	}
	return names
}

func TestTracing_SpansPerOperation(t *testing.T) {
	sr, opt := recorder(t)
	e, _ := start(t, simpleMachine(t), opt, WithID("traced"))

	send(t, e, "go")

	spans := sr.Ended()
	require.Equal(t, []string{"umlsm.go", "umlsm.take"}, spanNames(spans))

	take := spans[1]
	assert.Contains(t, take.Attributes(), attribute.String("umlsm.machine", "simple"))
	assert.Contains(t, take.Attributes(), attribute.String("umlsm.executor", "traced"))
	assert.Contains(t, take.Attributes(), attribute.String("umlsm.event", "go"))
	assert.Equal(t, codes.Unset, take.Status().Code)

	require.Len(t, take.Events(), 1)
	ev := take.Events()[0]
	assert.Equal(t, "transition", ev.Name)
	assert.Contains(t, ev.Attributes, attribute.String("umlsm.transition", "t1"))
	assert.Contains(t, ev.Attributes, attribute.String("umlsm.target", "end"))
}

func TestTracing_ParentFromContext(t *testing.T) {
	sr, opt := recorder(t)
	e, _ := start(t, simpleMachine(t), opt)

	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)).Tracer("host")
	ctx, parent := tracer.Start(context.Background(), "request")
	require.NoError(t, e.TakeContext(ctx, Signal("go")))
	parent.End()

	var take sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		if s.Name() == "umlsm.take" {
			take = s
		}
	}
	require.NotNil(t, take)
	assert.Equal(t, parent.SpanContext().SpanID(), take.Parent().SpanID())
}

func TestTracing_ErrorStatus(t *testing.T) {
	b := NewBuilder[*trail]("broken")
	top := b.Region("top")
	top.Initial().To("A")
	top.State("A").To("B").On("go").Effect(failing("boom"))
	top.State("B")

	sr, opt := recorder(t)
	e, _ := start(t, mustBuild(t, b), opt)

	require.Error(t, e.Take(Signal("go")))

	spans := sr.Ended()
	take := spans[len(spans)-1]
	assert.Equal(t, "umlsm.take", take.Name())
	assert.Equal(t, codes.Error, take.Status().Code)
	assert.Contains(t, take.Status().Description, "boom")
}
