package usecase

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var usecaseTracer = otel.Tracer("fpl-predictor/internal/usecase")

// startUsecaseSpan only opens a child span; calls made outside a traced
// request (warm-up, the refresher, the importer CLI) stay untraced.
func startUsecaseSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if !trace.SpanContextFromContext(ctx).IsValid() {
		return ctx, noop.Span{}
	}
	return usecaseTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records *errp on the span before ending it. Caller mistakes
// (ErrInvalidInput, ErrNotFound) are tagged but do not mark the span failed.
func endSpan(span trace.Span, errp *error) {
	defer span.End()
	if errp == nil || *errp == nil {
		return
	}
	err := *errp
	span.RecordError(err)
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound) {
		span.SetAttributes(attribute.Bool("error.client", true))
		return
	}
	span.SetStatus(codes.Error, err.Error())
}
