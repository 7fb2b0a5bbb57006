package observability

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestShouldSkipUptraceLog(t *testing.T) {
	t.Parallel()

	if !shouldSkipUptraceLog("http request", map[string]any{"path": "/healthz"}) {
		t.Fatalf("expected health check log to be skipped")
	}
	if shouldSkipUptraceLog("http request", map[string]any{"path": "/v1/tiers"}) {
		t.Fatalf("did not expect non-health log to be skipped")
	}
	if !shouldSkipUptraceLog("http request", map[string]any{"path": "/readyz"}) {
		t.Fatalf("expected readiness probe log to be skipped")
	}
	if shouldSkipUptraceLog("snapshot built", map[string]any{"path": "/healthz"}) {
		t.Fatalf("did not expect non-request event to be skipped")
	}
}

func TestFieldValuesAndAttributes(t *testing.T) {
	t.Parallel()

	values := fieldValues(
		[]zapcore.Field{zap.String("service", "fpl-predictor-api")},
		[]zapcore.Field{
			zap.Int64("player_id", 427),
			zap.Int("trials_run", 1000),
			zap.Duration("duration", 150*time.Millisecond),
			zap.Error(errors.New("fixtures unavailable")),
			zap.String("trace_id", "4bf92f3577b34da6a3ce929d0e0e4736"),
		},
	)

	attrs := buildOTelLogAttributes(values)
	if len(attrs) != 5 {
		t.Fatalf("unexpected attribute count: got=%d want=5", len(attrs))
	}
	// sorted by key, trace ids excluded
	wantKeys := []string{"duration", "error", "player_id", "service", "trials_run"}
	for i, key := range wantKeys {
		if attrs[i].Key != key {
			t.Fatalf("attribute %d: got=%q want=%q", i, attrs[i].Key, key)
		}
	}
	if attrs[2].Value.AsInt64() != 427 {
		t.Fatalf("unexpected player_id: got=%d", attrs[2].Value.AsInt64())
	}
	if attrs[1].Value.AsString() != "fixtures unavailable" {
		t.Fatalf("unexpected error attribute: %q", attrs[1].Value.AsString())
	}
}

func TestSpanContextFromFields(t *testing.T) {
	t.Parallel()

	ctx := spanContextFromFields(context.Background(), map[string]any{
		"trace_id": "4bf92f3577b34da6a3ce929d0e0e4736",
		"span_id":  "00f067aa0ba902b7",
	})
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		t.Fatalf("expected a valid span context")
	}
	if sc.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("unexpected trace id: %s", sc.TraceID())
	}

	bare := spanContextFromFields(context.Background(), map[string]any{"trace_id": "nope"})
	if trace.SpanContextFromContext(bare).IsValid() {
		t.Fatalf("expected no span context for malformed ids")
	}
}

func TestToOTelLogValue(t *testing.T) {
	t.Parallel()

	v := toOTelLogValue(map[string]any{
		"expected_points": 6.4,
		"captain":         true,
		"squad":           []any{int64(1), int64(2)},
	}, 0)
	if v.Kind() != otellog.KindMap {
		t.Fatalf("expected map value, got %s", v.Kind())
	}
	items := v.AsMap()
	if len(items) != 3 {
		t.Fatalf("expected 3 map items, got %d", len(items))
	}
	if items[2].Key != "squad" || items[2].Value.Kind() != otellog.KindSlice {
		t.Fatalf("unexpected squad item: %+v", items[2])
	}
	if toOTelLogValue(nil, 0).Kind() != otellog.KindEmpty {
		t.Fatalf("expected empty value for nil")
	}
}

func TestOTelLogCoreRespectsLevel(t *testing.T) {
	t.Parallel()

	core := newOTelLogCore("test", zapcore.WarnLevel)
	if core.Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be filtered at warn level")
	}
	child := core.With([]zapcore.Field{zap.String("component", "snapshot")})
	if got := len(child.(*otelLogCore).fields); got != 1 {
		t.Fatalf("unexpected inherited fields: got=%d want=1", got)
	}
	if len(core.fields) != 0 {
		t.Fatalf("With must not mutate the parent core")
	}
}

func TestSeverityOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level zapcore.Level
		want  otellog.Severity
	}{
		{level: zapcore.DebugLevel, want: otellog.SeverityDebug},
		{level: zapcore.InfoLevel, want: otellog.SeverityInfo},
		{level: zapcore.WarnLevel, want: otellog.SeverityWarn},
		{level: zapcore.ErrorLevel, want: otellog.SeverityError},
		{level: zapcore.FatalLevel, want: otellog.SeverityFatal4},
		{level: zapcore.Level(-3), want: otellog.SeverityTrace},
	}
	for _, tc := range tests {
		if got := severityOf(tc.level); got != tc.want {
			t.Fatalf("level=%s got=%v want=%v", tc.level, got, tc.want)
		}
	}
}

func TestToOTelLogValue_Integers(t *testing.T) {
	t.Parallel()

	if v := toOTelLogValue(uint32(7), 0); v.Kind() != otellog.KindInt64 || v.AsInt64() != 7 {
		t.Fatalf("unexpected uint32 value: %+v", v)
	}
	if v := toOTelLogValue(uint64(math.MaxUint64), 0); v.Kind() != otellog.KindString {
		t.Fatalf("overflowing uint64 should be stringified, got %s", v.Kind())
	}
	if v := toOTelLogValue(1500*time.Millisecond, 0); v.AsString() != "1.5s" {
		t.Fatalf("unexpected duration value: %q", v.AsString())
	}
}
