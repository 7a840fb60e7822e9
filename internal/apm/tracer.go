package apm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span is the subset of trace.Span application code touches.
type Span interface {
	SetAttributes(kv ...attribute.KeyValue)
	AddEvent(name string, kv ...attribute.KeyValue)
	// NoticeError records err and marks the span failed.
	NoticeError(err error)
	// Succeed marks the span ok with a short outcome.
	Succeed(outcome string)
	End()
}

// Tracer starts spans against whatever provider is installed globally at the
// time of the call, so providers set up after construction are honoured.
type Tracer interface {
	StartSpanFromContext(ctx context.Context, name string, kv ...attribute.KeyValue) (context.Context, Span)
}

type globalTracer struct {
	name string
}

// NewTracer returns a Tracer for the given instrumentation scope.
func NewTracer(name string) Tracer {
	return globalTracer{name: name}
}

func (t globalTracer) StartSpanFromContext(ctx context.Context, name string, kv ...attribute.KeyValue) (context.Context, Span) {
	ctx, span := otel.Tracer(t.name).Start(ctx, name, trace.WithAttributes(kv...))
	return ctx, otelSpan{span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) SetAttributes(kv ...attribute.KeyValue) {
	s.span.SetAttributes(kv...)
}

func (s otelSpan) AddEvent(name string, kv ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(kv...))
}

func (s otelSpan) NoticeError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s otelSpan) Succeed(outcome string) {
	s.span.SetStatus(codes.Ok, outcome)
}

func (s otelSpan) End() {
	s.span.End()
}
