package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/trace"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    Level
		wantErr bool
	}{
		{raw: "", want: LevelInfo},
		{raw: "DEBUG", want: LevelDebug},
		{raw: "warning", want: LevelWarn},
		{raw: " error ", want: LevelError},
		{raw: "verbose", want: LevelInfo, wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseLevel(tc.raw)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseLevel(%q) error: got=%v wantErr=%v", tc.raw, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("ParseLevel(%q): got=%v want=%v", tc.raw, got, tc.want)
		}
	}
}

func TestLoggerWritesFieldsAndTrace(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewJSONWriter(&buf, LevelInfo, "service", "fpl-predictor").Named("snapshot")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger.Debug("hidden")
	logger.WarnContext(ctx, "snapshot built", "players", 3, "error", errors.New("partial"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("unexpected line count: got=%d want=%d", len(lines), 1)
	}
	var entry map[string]any
	if err := sonic.UnmarshalString(lines[0], &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	checks := map[string]any{
		"level":     "warn",
		"component": "snapshot",
		"service":   "fpl-predictor",
		"players":   float64(3),
		"error":     "partial",
		"trace_id":  traceID.String(),
	}
	for key, want := range checks {
		if entry[key] != want {
			t.Fatalf("unexpected %s: got=%v want=%v", key, entry[key], want)
		}
	}
}

func TestNilLoggerFallsBackToDefault(t *testing.T) {
	t.Parallel()

	var logger *Logger
	logger.Info("no panic")
	if logger.With("k", "v") == nil {
		t.Fatalf("With on nil must return a usable logger")
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "", want: FormatJSON},
		{raw: "JSON", want: FormatJSON},
		{raw: " console ", want: FormatConsole},
		{raw: "logfmt", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseFormat(tc.raw)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseFormat(%q) error: got=%v wantErr=%v", tc.raw, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("ParseFormat(%q): got=%q want=%q", tc.raw, got, tc.want)
		}
	}
}

func TestLoggerTypedFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, Options{Level: LevelInfo})
	logger.Info("import finished", "duration", 1500*time.Millisecond, "failed_players", []int64{205, 101})

	var entry map[string]any
	if err := sonic.UnmarshalString(strings.TrimSpace(buf.String()), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry["duration"] != float64(1500) {
		t.Fatalf("got=%v want=1500 (millis)", entry["duration"])
	}
	ids, ok := entry["failed_players"].([]any)
	if !ok || len(ids) != 2 || ids[0] != float64(205) {
		t.Fatalf("unexpected failed_players: %v", entry["failed_players"])
	}
}

func TestLoggerConsoleFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	New(&buf, Options{Level: LevelInfo, Format: FormatConsole}).Named("refresher").Info("snapshot built", "players", 300)

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("console output should not be JSON: %s", out)
	}
	for _, want := range []string{"refresher", "snapshot built", `"players": 300`} {
		if !strings.Contains(out, want) {
			t.Fatalf("console output missing %q: %s", want, out)
		}
	}
}

func TestLoggerSampling(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, Options{Level: LevelInfo, Sample: 3})
	for range 50 {
		logger.Warn("history fetch retry")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) >= 50 || len(lines) < 3 {
		t.Fatalf("expected sampled output, got %d lines", len(lines))
	}
}
