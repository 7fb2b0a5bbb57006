package observability

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	otelglobal "go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

const (
	logScope         = "fpl-predictor/internal/platform/logging"
	requestLogMsg    = "http request"
	maxLogValueDepth = 3
)

// probePaths are polled by orchestrators every few seconds; their access
// logs stay on stdout but are not shipped.
var probePaths = map[string]struct{}{
	"/healthz": {},
	"/health":  {},
	"/livez":   {},
	"/readyz":  {},
}

var zapSeverity = map[zapcore.Level]otellog.Severity{
	zapcore.DebugLevel:  otellog.SeverityDebug,
	zapcore.InfoLevel:   otellog.SeverityInfo,
	zapcore.WarnLevel:   otellog.SeverityWarn,
	zapcore.ErrorLevel:  otellog.SeverityError,
	zapcore.DPanicLevel: otellog.SeverityFatal1,
	zapcore.PanicLevel:  otellog.SeverityFatal2,
	zapcore.FatalLevel:  otellog.SeverityFatal4,
}

// otelLogCore ships zap entries to the global OTel logger provider. It is
// teed next to the stdout core, so dropping a record here never loses it.
type otelLogCore struct {
	zapcore.LevelEnabler
	logger otellog.Logger
	fields []zapcore.Field
}

func newOTelLogCore(serviceVersion string, level zapcore.LevelEnabler) *otelLogCore {
	return &otelLogCore{
		LevelEnabler: level,
		logger:       otelglobal.Logger(logScope, otellog.WithInstrumentationVersion(serviceVersion)),
	}
}

func (c *otelLogCore) With(fields []zapcore.Field) zapcore.Core {
	return &otelLogCore{
		LevelEnabler: c.LevelEnabler,
		logger:       c.logger,
		fields:       slices.Concat(c.fields, fields),
	}
}

func (c *otelLogCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return ce.AddCore(entry, c)
}

func (c *otelLogCore) Sync() error { return nil }

func (c *otelLogCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	values := fieldValues(c.fields, fields)
	if shouldSkipUptraceLog(entry.Message, values) {
		return nil
	}

	ctx := spanContextFromFields(context.Background(), values)
	severity := severityOf(entry.Level)
	if !c.logger.Enabled(ctx, otellog.EnabledParameters{Severity: severity, EventName: entry.Message}) {
		return nil
	}

	var rec otellog.Record
	rec.SetTimestamp(entry.Time)
	rec.SetObservedTimestamp(time.Now().UTC())
	rec.SetSeverity(severity)
	rec.SetSeverityText(entry.Level.CapitalString())
	rec.SetEventName(entry.Message)
	rec.SetBody(otellog.StringValue(entry.Message))
	if entry.LoggerName != "" {
		rec.AddAttributes(otellog.String("component", entry.LoggerName))
	}
	rec.AddAttributes(buildOTelLogAttributes(values)...)

	c.logger.Emit(ctx, rec)
	return nil
}

func severityOf(level zapcore.Level) otellog.Severity {
	if s, ok := zapSeverity[level]; ok {
		return s
	}
	if level < zapcore.DebugLevel {
		return otellog.SeverityTrace
	}
	return otellog.SeverityError
}

// fieldValues flattens zap fields the way the JSON encoder would see them.
func fieldValues(groups ...[]zapcore.Field) map[string]any {
	enc := zapcore.NewMapObjectEncoder()
	for _, group := range groups {
		for _, f := range group {
			f.AddTo(enc)
		}
	}
	return enc.Fields
}

func spanContextFromFields(ctx context.Context, values map[string]any) context.Context {
	tid, _ := values["trace_id"].(string)
	sid, _ := values["span_id"].(string)

	traceID, terr := trace.TraceIDFromHex(tid)
	spanID, serr := trace.SpanIDFromHex(sid)
	if terr != nil || serr != nil {
		return ctx
	}
	return trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}))
}

func shouldSkipUptraceLog(msg string, values map[string]any) bool {
	if msg != requestLogMsg {
		return false
	}
	path, _ := values["path"].(string)
	_, probe := probePaths[path]
	return probe
}

// buildOTelLogAttributes returns the fields sorted by key. Trace ids are
// carried by the record's context instead.
func buildOTelLogAttributes(values map[string]any) []otellog.KeyValue {
	attrs := make([]otellog.KeyValue, 0, len(values))
	for _, key := range slices.Sorted(maps.Keys(values)) {
		if key == "trace_id" || key == "span_id" {
			continue
		}
		attrs = append(attrs, otellog.KeyValue{Key: key, Value: toOTelLogValue(values[key], 0)})
	}
	return attrs
}

// toOTelLogValue handles what zapcore.MapObjectEncoder produces: scalars,
// []any for arrays and map[string]any for objects. Anything nested deeper
// than maxLogValueDepth is stringified.
func toOTelLogValue(value any, depth int) otellog.Value {
	if value == nil {
		return otellog.Value{}
	}
	if depth >= maxLogValueDepth {
		return otellog.StringValue(fmt.Sprint(value))
	}
	if n, ok := asInt64(value); ok {
		return otellog.Int64Value(n)
	}

	switch v := value.(type) {
	case string:
		return otellog.StringValue(v)
	case bool:
		return otellog.BoolValue(v)
	case float64:
		return otellog.Float64Value(v)
	case float32:
		return otellog.Float64Value(float64(v))
	case []byte:
		return otellog.BytesValue(slices.Clone(v))
	case time.Time:
		return otellog.StringValue(v.UTC().Format(time.RFC3339Nano))
	case []any:
		items := make([]otellog.Value, len(v))
		for i, item := range v {
			items[i] = toOTelLogValue(item, depth+1)
		}
		return otellog.SliceValue(items...)
	case map[string]any:
		kvs := make([]otellog.KeyValue, 0, len(v))
		for _, key := range slices.Sorted(maps.Keys(v)) {
			kvs = append(kvs, otellog.KeyValue{Key: key, Value: toOTelLogValue(v[key], depth+1)})
		}
		return otellog.MapValue(kvs...)
	case fmt.Stringer:
		return otellog.StringValue(v.String())
	}
	return otellog.StringValue(strings.TrimSpace(fmt.Sprint(value)))
}

// asInt64 reports integer values that fit in int64. Durations are excluded
// so they keep their readable string form via fmt.Stringer.
func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}
