package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	stdoutmetric "go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/config"
)

const (
	serviceNamespace = "restaurant"
	serviceVersion   = "0.1.0"
	flushTimeout     = 10 * time.Second
	dialTimeout      = 10 * time.Second
	stdoutInterval   = 30 * time.Second
)

// Module provides the Manager and its MeterProvider, so instruments are bound
// to the configured exporter rather than the global delegate.
var Module = fx.Options(
	fx.Provide(NewManager),
	fx.Provide(func(m *Manager) metric.MeterProvider { return m.MeterProvider() }),
)

// Manager owns the trace and metric pipelines. Either may be absent.
type Manager struct {
	traces  *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
	scrape  http.Handler
	path    string
}

// NewManager builds the pipelines the configuration asks for and installs
// them as otel globals on start. Unknown exporter names disable the pipeline
// with a warning.
func NewManager(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*Manager, error) {
	obs := cfg.Observability
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx := context.Background()
	res, err := sdkresource.New(ctx,
		sdkresource.WithFromEnv(),
		sdkresource.WithHost(),
		sdkresource.WithAttributes(
			semconv.ServiceName(obs.ServiceName),
			semconv.ServiceNamespace(serviceNamespace),
			semconv.ServiceVersion(serviceVersion),
			attribute.String("service.environment", obs.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observability resource: %w", err)
	}

	m := &Manager{path: obs.PrometheusPath}
	if obs.EnableTracing {
		exporter, err := spanExporter(ctx, obs)
		switch {
		case err != nil:
			return nil, fmt.Errorf("trace exporter: %w", err)
		case exporter == nil:
			logger.Warn("unsupported trace exporter; tracing disabled", zap.String("exporter", obs.TraceExporter))
		default:
			m.traces = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res))
		}
	}
	if obs.EnableMetrics {
		reader, scrape, err := metricReader(obs.MetricsExporter)
		switch {
		case err != nil:
			return nil, fmt.Errorf("metrics exporter: %w", err)
		case reader == nil:
			logger.Warn("unsupported metrics exporter; metrics disabled", zap.String("exporter", obs.MetricsExporter))
		default:
			m.metrics = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
			m.scrape = scrape
		}
	}

	lc.Append(fx.Hook{OnStart: m.install, OnStop: m.shutdown})
	return m, nil
}

func (m *Manager) install(context.Context) error {
	if m.traces != nil {
		otel.SetTracerProvider(m.traces)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	}
	if m.metrics != nil {
		otel.SetMeterProvider(m.metrics)
	}
	return nil
}

// shutdown flushes buffered spans and metrics.
func (m *Manager) shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	var errs []error
	if m.traces != nil {
		errs = append(errs, m.traces.Shutdown(ctx))
	}
	if m.metrics != nil {
		errs = append(errs, m.metrics.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (m *Manager) TracingEnabled() bool { return m.traces != nil }

func (m *Manager) MetricsEnabled() bool { return m.metrics != nil }

// MeterProvider returns the SDK provider, or a noop one when metrics are off.
func (m *Manager) MeterProvider() metric.MeterProvider {
	if m.metrics == nil {
		return noop.NewMeterProvider()
	}
	return m.metrics
}

// MetricsHandler serves the Prometheus registry; nil unless the prometheus
// exporter is active.
func (m *Manager) MetricsHandler() http.Handler { return m.scrape }

// PrometheusPath is where MetricsHandler should be mounted.
func (m *Manager) PrometheusPath() string { return m.path }

// spanExporter returns nil, nil for an unknown exporter name.
func spanExporter(ctx context.Context, obs config.Observability) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(obs.TraceExporter) {
	case "", "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		if obs.TraceEndpoint == "" {
			return nil, errors.New("OBS_OTLP_ENDPOINT must be set for the otlp exporter")
		}
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(obs.TraceEndpoint)}
		if obs.TraceInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		ctx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, nil
	}
}

// metricReader returns a nil reader for an unknown exporter name. The scrape
// handler is only set for prometheus.
func metricReader(name string) (sdkmetric.Reader, http.Handler, error) {
	switch strings.ToLower(name) {
	case "prometheus":
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
		if err != nil {
			return nil, nil, err
		}
		return exporter, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}), nil
	case "stdout":
		exporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint(), stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, nil, err
		}
		return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(stdoutInterval)), nil, nil
	default:
		return nil, nil, nil
	}
}
