// Package telemetry installs the OpenTelemetry SDK providers used by the
// sxl binaries. Library packages only talk to the otel API; without Init
// their spans and instruments are no-ops.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ErrUnknownExporter is returned for an exporter name Init does not know.
var ErrUnknownExporter = errors.New("telemetry: unknown exporter")

// Config selects exporters.
type Config struct {
	ServiceName string `yaml:"service_name" validate:"required"`
	// TraceExporter is "stdout" or "none".
	TraceExporter string `yaml:"trace_exporter" validate:"oneof=stdout none"`
	// MetricExporter is "prometheus", "stdout" or "none".
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`
	// Output receives stdout exporter output. Defaults to os.Stderr.
	Output io.Writer `yaml:"-"`
}

// DefaultConfig exports metrics to Prometheus and drops traces.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "sxl",
		TraceExporter:  "none",
		MetricExporter: "prometheus",
	}
}

// Telemetry owns the installed providers.
type Telemetry struct {
	metrics   http.Handler
	shutdowns []func(context.Context) error
}

// Init builds the configured providers and installs them as the otel
// globals.
func Init(ctx context.Context, cfg Config) (*Telemetry, error) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	res := resource.NewWithAttributes("",
		attribute.String("service.name", cfg.ServiceName),
	)
	t := &Telemetry{metrics: http.NotFoundHandler()}

	switch cfg.TraceExporter {
	case "none", "":
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(cfg.Output))
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		t.shutdowns = append(t.shutdowns, tp.Shutdown)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}

	var reader sdkmetric.Reader
	switch cfg.MetricExporter {
	case "none", "":
	case "prometheus":
		reg := prometheus.NewRegistry()
		exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		reader = exporter
		t.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	case "stdout":
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.Output))
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.MetricExporter)
	}
	if reader != nil {
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
		otel.SetMeterProvider(mp)
		t.shutdowns = append(t.shutdowns, mp.Shutdown)
	}
	return t, nil
}

// MetricsHandler serves the Prometheus exposition, or 404 when metrics are
// not exported to Prometheus.
func (t *Telemetry) MetricsHandler() http.Handler { return t.metrics }

// Shutdown flushes and stops every provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdowns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
