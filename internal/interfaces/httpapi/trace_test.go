package httpapi

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestShouldTraceRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{path: "/healthz", want: false},
		{path: " /readyz ", want: false},
		{path: "/OPENAPI.yaml", want: false},
		{path: "/docs", want: false},
		{path: "/v1/tiers", want: true},
		{path: "/v1/squads/simulations", want: true},
		{path: "/v1/players/101/distribution", want: true},
		{path: "/", want: true},
	}
	for _, tc := range tests {
		if got := shouldTraceRequest(tc.path); got != tc.want {
			t.Fatalf("path=%q got=%v want=%v", tc.path, got, tc.want)
		}
	}
}

func TestStartSpan_NoopWithoutParent(t *testing.T) {
	t.Parallel()

	ctx, span := startSpan(context.Background(), "httpapi.Handler.SimulateLineup")
	defer span.End()

	if span.SpanContext().IsValid() {
		t.Fatalf("expected a no-op span without a parent request span")
	}
	if trace.SpanFromContext(ctx).SpanContext().IsValid() {
		t.Fatalf("context should not carry a span")
	}
}

func TestStartSpan_IgnoresNamesOutsideHandlers(t *testing.T) {
	t.Parallel()

	parent := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
	}))

	ctx, span := startSpan(parent, "httpapi.writeError")
	defer span.End()
	if ctx != parent {
		t.Fatalf("helper names must not open spans")
	}
}
