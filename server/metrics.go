package server

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("spacetime.server")

var (
	toolCalls    metric.Int64Counter
	toolDuration metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error
		toolCalls, err = meter.Int64Counter(
			"sxl_tool_calls_total",
			metric.WithDescription("Total number of tool calls by tool and outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
		toolDuration, err = meter.Float64Histogram(
			"sxl_tool_call_duration_seconds",
			metric.WithDescription("Duration of tool calls"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

func recordToolCall(ctx context.Context, tool, outcome string, d time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("outcome", outcome),
	)
	toolCalls.Add(ctx, 1, attrs)
	toolDuration.Record(ctx, d.Seconds(), attrs)
}
