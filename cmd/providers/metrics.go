package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	prometheusmetrics "github.com/deathowl/go-metrics-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rcrowley/go-metrics"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
)

// GOMPrometheusSync specifies the time interval to sync go-metrics to Prometheus.
var GOMPrometheusSync = 5 * time.Second

// Metrics holds the Prometheus exposition of all process metrics.
type Metrics struct {
	// Handler serves the Prometheus text format.
	Handler  http.Handler
	Provider *sdkmetric.MeterProvider
}

// SetupPrometheus configures the OpenTelemetry and go-metrics Prometheus exporters on reg.
// go-metrics carries the Kafka client metrics.
func SetupPrometheus(reg *prometheus.Registry) (*Metrics, error) {
	// Setup go-metrics Prometheus exporter.
	gomProvider := prometheusmetrics.NewPrometheusProvider(
		metrics.DefaultRegistry,
		"octolog", "",
		reg,
		GOMPrometheusSync)
	go gomProvider.UpdatePrometheusMetrics()
	// Set up OpenTelemetry Prometheus exporter.
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenTelemetry Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return &Metrics{
		Handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Provider: provider,
	}, nil
}

// NewMetrics sets up a fresh registry with Go runtime and process collectors.
func NewMetrics(lc fx.Lifecycle) (*Metrics, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := SetupPrometheus(reg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return m.Provider.Shutdown(ctx)
		},
	})
	return m, nil
}
