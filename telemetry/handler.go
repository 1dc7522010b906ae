// Package telemetry bridges the driver's slog-based superstep and phase
// tracing onto OpenTelemetry: StartSuperstepSpan/EndSuperstepSpan wrap one
// superstep in a span, StartPhaseSpan/EndPhaseSpan wrap one of its two
// phases (messaging, update) in a child span, and RecordSuperstepCounter
// records an int64 count (active vertices, envelopes produced) against the
// current superstep span. All of it travels as ordinary slog.LogAttrs
// calls that this handler intercepts before they reach the passthrough
// handler.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/arborworks/pregel/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type recorder func(ctx context.Context, val attribute.KeyValue, options metric.MeasurementOption)

type handler struct {
	passthrough slog.Handler
	meter       metric.Meter
	tracer      trace.Tracer
	teeToLog    bool
	m           sync.Mutex
	counters    map[string]recorder
	attributes  []attribute.KeyValue
}

// Handler is a slog.Handler that also bridges the superstep/phase span and
// counter vocabulary onto OpenTelemetry.
type Handler interface {
	slog.Handler
	WithInt64Counter(name string, x metric.Int64Counter)
}

// New returns a Handler wrapping logHandler (a text handler on stdout if
// logHandler is nil) that recognizes the superstep/phase trace and counter
// vocabulary and routes it to tracer/meter, in addition to the passthrough
// handler when teeToLog is set.
func New(
	logHandler slog.Handler,
	meter metric.Meter,
	tracer trace.Tracer,
	teeToLog bool,
	attributes ...attribute.KeyValue,
) Handler {
	if logHandler == nil {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: common.LevelTrace,
		})
	}
	return &handler{
		passthrough: logHandler,
		meter:       meter,
		tracer:      tracer,
		teeToLog:    teeToLog,
		counters:    make(map[string]recorder),
		attributes:  attributes,
	}
}

// StartSuperstepSpan starts a span covering one superstep and returns a new
// context the span lives in until EndSuperstepSpan is called with it.
func StartSuperstepSpan(ctx context.Context, jobName string, superstep int) context.Context {
	spanHolder := map[string]any{}
	c := common.Store(ctx, &spanHolder)
	slog.LogAttrs(c, common.LevelTrace, "superstep",
		slog.String("job", jobName),
		slog.Int("superstep", superstep),
		slog.String("type", common.TraceStart))
	return c
}

// EndSuperstepSpan ends the span started by StartSuperstepSpan, tagging it
// with the superstep's outcome ("ok" or "error").
func EndSuperstepSpan(ctx context.Context, outcome string) {
	slog.LogAttrs(ctx, common.LevelTrace, "superstep",
		slog.String("outcome", outcome),
		slog.String("type", common.TraceEnd))
}

// StartPhaseSpan starts a child span covering one phase ("messaging" or
// "update") of the superstep ctx belongs to, and returns a new context the
// phase span lives in until EndPhaseSpan is called with it.
func StartPhaseSpan(ctx context.Context, phase string) context.Context {
	parent, _, _ := getCtxAndSpan(ctx)
	spanHolder := map[string]any{}
	c := common.Store(parent, &spanHolder)
	slog.LogAttrs(c, common.LevelTrace, phase, slog.String("type", common.TraceStart))
	return c
}

// EndPhaseSpan ends the span started by StartPhaseSpan, tagging it with the
// phase's outcome ("ok" or "error").
func EndPhaseSpan(ctx context.Context, phase, outcome string) {
	slog.LogAttrs(ctx, common.LevelTrace, phase,
		slog.String("outcome", outcome),
		slog.String("type", common.TraceEnd))
}

// RecordSuperstepCounter records an int64 counter value (active vertex
// count, envelope count) against the superstep span in ctx.
func RecordSuperstepCounter(ctx context.Context, name string, value int64) {
	slog.LogAttrs(ctx, common.LevelMetric, name,
		slog.String("type", common.MetricInt64Counter),
		slog.Int64("value", value))
}

// WithInt64Counter pre-registers an int64 counter instrument under name,
// so RecordSuperstepCounter calls for it reuse the same instrument instead
// of creating one lazily on first use.
func (h *handler) WithInt64Counter(name string, x metric.Int64Counter) {
	h.addCounter(name, func(ctx context.Context, val attribute.KeyValue, option metric.MeasurementOption) {
		x.Add(ctx, val.Value.AsInt64(), option)
	})
}

func (h *handler) addCounter(name string, x recorder) {
	h.m.Lock()
	defer h.m.Unlock()
	h.counters[name] = x
}

// Enabled reports whether level is the trace or metric level this handler
// intercepts, or is enabled on the passthrough handler.
func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return level == common.LevelTrace || level == common.LevelMetric || h.passthrough.Enabled(ctx, level)
}

// Handle dispatches r to the span/counter bridge or the passthrough
// handler depending on its level.
func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	defer recov()
	var err error

	switch r.Level {
	case common.LevelTrace:
		err = h.handleTrace(ctx, r)
	case common.LevelMetric:
		err = h.handleMetric(ctx, r)
	default:
		err = h.passthrough.Handle(ctx, r)
	}

	if err != nil {
		fmt.Println("telemetry: handling record:", err, r)
	}

	return err
}

func recov() {
	if r := recover(); r != nil {
		fmt.Println("telemetry: recovered:", r)
	}
}

// WithAttrs folds attrs into both the span attribute set and the
// passthrough handler, and returns the same handler rather than a copy.
func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	for _, a := range attrs {
		h.attributes = append(h.attributes, convertAttr(a))
	}
	h.passthrough = h.passthrough.WithAttrs(attrs)
	return h
}

// WithGroup applies name to the passthrough handler's group, and returns
// the same handler rather than a copy.
func (h *handler) WithGroup(name string) slog.Handler {
	h.passthrough = h.passthrough.WithGroup(name)
	return h
}

func (h *handler) handleTrace(ctx context.Context, r slog.Record) error {
	attrs, flags := attrsFromRecord(r)
	if _, ok := flags["type"]; !ok {
		return fmt.Errorf("telemetry: invalid span message format - missing operation")
	}

	operation := flags["type"].Value.AsString()
	message := r.Message
	attributes := append(h.attributes, attrs...)

	c, span, sphldr := getCtxAndSpan(ctx)
	if sphldr == nil {
		return fmt.Errorf("telemetry: span holder not found in context for %s", operation)
	} else if span == nil && operation != common.TraceStart {
		return fmt.Errorf("telemetry: span not found in context for %s", operation)
	}
	switch operation {
	case common.TraceStart:
		(*sphldr)["ctx"], (*sphldr)["span"] = h.tracer.Start(
			c,
			message,
			trace.WithTimestamp(r.Time),
			trace.WithAttributes(attributes...),
		)
	case common.TraceEnd:
		span.SetAttributes(attributes...)
		span.End(trace.WithTimestamp(r.Time))
		delete(*sphldr, "ctx")
		delete(*sphldr, "span")
	default:
		return fmt.Errorf("telemetry: invalid span operation %q", operation)
	}

	if h.teeToLog {
		return h.passthrough.Handle(ctx, r)
	}

	return nil
}

func (h *handler) handleMetric(ctx context.Context, r slog.Record) error {
	attrs, flags := attrsFromRecord(r)
	if _, ok := flags["type"]; !ok {
		return fmt.Errorf("telemetry: invalid counter message format - missing type")
	} else if _, ok := flags["value"]; !ok {
		return fmt.Errorf("telemetry: invalid counter message format - missing value")
	}
	if metricType := flags["type"].Value.AsString(); metricType != common.MetricInt64Counter {
		return fmt.Errorf("telemetry: unsupported counter type %q", metricType)
	}
	metricName := r.Message
	metricValue := flags["value"]
	attributes := metric.WithAttributes(append(h.attributes, attrs...)...)

	rr, err := h.getCounter(metricName)
	if err != nil {
		return err
	}

	rr(ctx, metricValue, attributes)

	if h.teeToLog {
		return h.passthrough.Handle(ctx, r)
	}

	return nil
}

func getCtxAndSpan(ctx context.Context) (context.Context, trace.Span, *map[string]any) {
	if sphldr, ok := common.Get(ctx); !ok {
		return ctx, nil, nil
	} else if cVal, ok := (*sphldr)["ctx"]; !ok {
		return ctx, nil, sphldr
	} else if c, ok := cVal.(context.Context); !ok {
		return ctx, nil, sphldr
	} else if spanVal, ok := (*sphldr)["span"]; !ok {
		return c, nil, sphldr
	} else if span, ok := spanVal.(trace.Span); !ok {
		return c, nil, sphldr
	} else {
		return c, span, sphldr
	}
}

// getCounter returns the int64 counter recorder registered for metricName,
// creating (and caching) one from the handler's meter on first use.
func (h *handler) getCounter(metricName string) (recorder, error) {
	h.m.Lock()
	defer h.m.Unlock()
	if rr, ok := h.counters[metricName]; ok {
		return rr, nil
	}
	x, err := h.meter.Int64Counter(metricName)
	if err != nil {
		return nil, err
	}
	rr := func(ctx context.Context, val attribute.KeyValue, option metric.MeasurementOption) {
		x.Add(ctx, val.Value.AsInt64(), option)
	}
	h.counters[metricName] = rr
	return rr, nil
}

func attrsFromRecord(r slog.Record) ([]attribute.KeyValue, map[string]attribute.KeyValue) {
	attrs := make([]attribute.KeyValue, 0, r.NumAttrs())
	flags := make(map[string]attribute.KeyValue)
	r.Attrs(func(a slog.Attr) bool {
		attr := convertAttr(a)
		attrs = append(attrs, attr)
		if a.Key == "type" {
			flags["type"] = attr
		} else if a.Key == "value" {
			flags["value"] = attr
		}
		return true
	})

	return attrs, flags
}

func convertAttr(a slog.Attr) attribute.KeyValue {
	switch a.Value.Kind() {
	case slog.KindString:
		return attribute.String(a.Key, a.Value.String())
	case slog.KindTime:
		return attribute.String(a.Key, a.Value.Time().Format(time.RFC3339Nano))
	case slog.KindBool:
		return attribute.Bool(a.Key, a.Value.Bool())
	case slog.KindInt64:
		return attribute.Int64(a.Key, a.Value.Int64())
	case slog.KindFloat64:
		return attribute.Float64(a.Key, a.Value.Float64())
	default:
		return attribute.String(a.Key, a.Value.String())
	}
}
