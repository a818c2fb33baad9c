package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sentinel-Gate/beanguard/internal/domain/intercept"
	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
	"github.com/Sentinel-Gate/beanguard/internal/execution"
)

// instrumentationName identifies beanguard's tracer and meter.
const instrumentationName = "github.com/Sentinel-Gate/beanguard"

// tracingObserver opens one span per validation call. Hooks cannot hand a
// new ctx to the delegate, so open spans are kept on a per-scope stack and a
// nested validation becomes a child of the innermost open span.
type tracingObserver struct {
	tracer trace.Tracer
	spans  *execution.Stack[trace.Span]
}

// NewTracingInterceptor returns an interceptor named "tracing". A nil tp uses
// the global tracer provider.
func NewTracingInterceptor(tp trace.TracerProvider) intercept.Interceptor {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return intercept.Observe("tracing", &tracingObserver{
		tracer: tp.Tracer(instrumentationName),
		spans:  execution.NewStack[trace.Span]("telemetry.tracing.spans"),
	})
}

func (o *tracingObserver) Before(ctx context.Context, inv *intercept.Invocation) {
	parent := ctx
	if open, ok := o.spans.Peek(ctx); ok {
		parent = trace.ContextWithSpan(ctx, open)
	}

	spanAttrs := []attribute.KeyValue{
		attribute.String("beanguard.kind", inv.Kind.String()),
		attribute.String("beanguard.execution_id", execution.ID(ctx)),
	}
	if name := inv.BeanTypeName(); name != "" {
		spanAttrs = append(spanAttrs, attribute.String("beanguard.bean_type", name))
	}
	if inv.Property != "" {
		spanAttrs = append(spanAttrs, attribute.String("beanguard.property", inv.Property))
	}
	if name := inv.ExecutableName(); name != "" {
		spanAttrs = append(spanAttrs, attribute.String("beanguard.executable", name))
	}
	if len(inv.Groups) > 0 {
		spanAttrs = append(spanAttrs, attribute.StringSlice("beanguard.groups", inv.GroupNames()))
	}

	_, span := o.tracer.Start(parent, "beanguard."+inv.Kind.String(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(spanAttrs...),
	)
	o.spans.Push(ctx, span)
}

func (o *tracingObserver) After(ctx context.Context, inv *intercept.Invocation, violations validation.Violations, err error) {
	span, ok := o.spans.Pop(ctx)
	if !ok {
		return
	}
	defer span.End()

	span.SetAttributes(
		attribute.Int("beanguard.violations", len(violations)),
		attribute.String("beanguard.outcome", string(intercept.OutcomeOf(violations, err))),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
