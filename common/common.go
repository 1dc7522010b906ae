// Package common holds the slog level/attribute vocabulary used to carry
// superstep and phase span/counter events from the driver's tracing calls
// into the telemetry package's OpenTelemetry bridge: the two custom levels
// that smuggle a span or counter event through the standard logger, and a
// context carrier for the span holder a superstep or phase span lives in
// between its start and end log calls.
package common

import (
	"context"
	"log/slog"
)

const (
	LevelTrace           slog.Level = -16
	LevelMetric          slog.Level = -8
	TraceStart           string     = "start"
	TraceEnd             string     = "end"
	MetricInt64Counter   string     = "int64counter"
	ctxKey               key        = iota
)

type key int

func Store(ctx context.Context, m *map[string]any) context.Context {
	return context.WithValue(ctx, ctxKey, m)
}

func Get(ctx context.Context) (*map[string]any, bool) {
	if val := ctx.Value(ctxKey); val == nil {
		return nil, false
	} else if m, ok := val.(*map[string]any); !ok {
		return nil, false
	} else {
		return m, true
	}
}
