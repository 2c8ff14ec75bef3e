package tensor

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for manifold operations.
var (
	tracer = otel.Tracer("spacetime.tensor")
	meter  = otel.Meter("spacetime.tensor")
)

var (
	componentsComputed metric.Int64Counter
	componentHits      metric.Int64Counter
	defineDuration     metric.Float64Histogram
	defineTotal        metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		componentsComputed, err = meter.Int64Counter(
			"tensor_components_computed_total",
			metric.WithDescription("Total number of tensor components derived by formula"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		componentHits, err = meter.Int64Counter(
			"tensor_component_cache_hits_total",
			metric.WithDescription("Total number of tensor component reads served from the memo"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		defineDuration, err = meter.Float64Histogram(
			"manifold_define_duration_seconds",
			metric.WithDescription("Duration of manifold tensor definitions"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		defineTotal, err = meter.Int64Counter(
			"manifold_define_total",
			metric.WithDescription("Total number of define requests by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordComponents records the memo activity between two stats snapshots.
func recordComponents(ctx context.Context, name string, before, after Stats) {
	if err := initMetrics(); err != nil {
		return
	}
	b, a := before.Total(), after.Total()
	attrs := metric.WithAttributes(attribute.String("tensor", name))
	if d := a.Computed - b.Computed; d > 0 {
		componentsComputed.Add(ctx, int64(d), attrs)
	}
	if d := a.Hits - b.Hits; d > 0 {
		componentHits.Add(ctx, int64(d), attrs)
	}
}

// recordDefine records the outcome and latency of a Define call.
func recordDefine(ctx context.Context, name, outcome string, d time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tensor", name),
		attribute.String("outcome", outcome),
	)
	defineTotal.Add(ctx, 1, attrs)
	defineDuration.Record(ctx, d.Seconds(), attrs)
}
