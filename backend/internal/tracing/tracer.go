// Package tracing implements the tracing envelope C7 wraps every trigger
// in: one server-kind span per call, carrying the attributes spec §4.7
// names, built on go.opentelemetry.io/otel rather than hand-rolled trace
// ids.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"runtrigger/backend/internal/runtrigger"
)

// Tracer implements runtrigger.EventRepository.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer wraps the named tracer from the global TracerProvider.
func NewTracer(instrumentationName string) *Tracer {
	return &Tracer{tracer: otel.Tracer(instrumentationName)}
}

// NewProvider builds a basic SDK TracerProvider with the given span
// processors (e.g. an OTLP batch exporter) and installs it as the global
// provider, mirroring how a production process wires an exporter once at
// startup.
func NewProvider(processors ...sdktrace.SpanProcessor) *sdktrace.TracerProvider {
	opts := make([]sdktrace.TracerProviderOption, 0, len(processors))
	for _, p := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}
	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)
	return provider
}

// TraceEvent implements runtrigger.EventRepository: opens one server-kind
// span named after taskSlug, derives the upstream traceparent span id (if
// ctx already carries a span context) before starting its own span, and
// records body's error on the span before propagating it.
func (t *Tracer) TraceEvent(
	ctx context.Context,
	taskSlug string,
	opts runtrigger.TraceEventOptions,
	body func(ctx context.Context, trace runtrigger.TraceContext) (*runtrigger.Run, error),
) (*runtrigger.Run, error) {
	var traceparentSpanID *string
	if parent := trace.SpanContextFromContext(ctx); parent.IsValid() {
		id := parent.SpanID().String()
		traceparentSpanID = &id
	}

	attrs := []attribute.KeyValue{
		attribute.String("taskSlug", taskSlug),
		attribute.Bool("runIsTest", opts.RunIsTest),
		attribute.String("styleIcon", opts.StyleIcon),
		attribute.Bool("showActionBar", opts.ShowActionBar),
	}
	if opts.BatchID != nil {
		attrs = append(attrs, attribute.String("batchId", *opts.BatchID))
	}
	if opts.IdempotencyKey != nil {
		attrs = append(attrs, attribute.String("idempotencyKey", *opts.IdempotencyKey))
	}

	ctx, span := t.tracer.Start(ctx, taskSlug,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	sc := span.SpanContext()
	run, err := body(ctx, runtrigger.TraceContext{
		TraceID:           sc.TraceID().String(),
		SpanID:            sc.SpanID().String(),
		TraceparentSpanID: traceparentSpanID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return run, err
}
