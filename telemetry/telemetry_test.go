package telemetry_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/njchilds90/spacetime/telemetry"
)

func TestInit_Prometheus(t *testing.T) {
	tel, err := telemetry.Init(context.Background(), telemetry.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	counter, err := otel.Meter("telemetry_test").Int64Counter("telemetry_test_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	tel.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "telemetry_test_total")
}

func TestInit_StdoutAndNone(t *testing.T) {
	var buf bytes.Buffer
	cfg := telemetry.Config{ServiceName: "test", TraceExporter: "stdout", MetricExporter: "none", Output: &buf}
	tel, err := telemetry.Init(context.Background(), cfg)
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry_test").Start(context.Background(), "op")
	span.End()
	require.NoError(t, tel.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name":"op"`)

	rec := httptest.NewRecorder()
	tel.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := telemetry.Init(context.Background(), telemetry.Config{MetricExporter: "statsd"})
	assert.ErrorIs(t, err, telemetry.ErrUnknownExporter)
}
