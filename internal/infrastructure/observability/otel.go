package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/truenorth/comex/backend"

// Metrics holds all application metrics. A nil *Metrics records nothing.
type Metrics struct {
	RequestCount           metric.Int64Counter
	RequestDuration        metric.Float64Histogram
	SearchCount            metric.Int64Counter
	SearchDuration         metric.Float64Histogram
	SearchFallbackCount    metric.Int64Counter
	SearchDegradedCount    metric.Int64Counter
	RegistryFailureCount   metric.Int64Counter
	CacheWriteFailureCount metric.Int64Counter
}

// Setup installs OTLP gRPC trace and metric exporters plus Go runtime metrics
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	if err := runtime.Start(runtime.WithMeterProvider(meterProvider)); err != nil {
		_ = tracerProvider.Shutdown(ctx)
		_ = meterProvider.Shutdown(ctx)
		return nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(tracerProvider.Shutdown(ctx), meterProvider.Shutdown(ctx))
	}
	return shutdown, nil
}

// InitMetrics creates the instruments on the global meter provider
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}
	var err error

	if m.RequestCount, err = meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.RequestDuration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.SearchCount, err = meter.Int64Counter("ncm.search.count",
		metric.WithDescription("Number of NCM description searches")); err != nil {
		return nil, err
	}
	if m.SearchDuration, err = meter.Float64Histogram("ncm.search.duration",
		metric.WithDescription("NCM search duration in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.SearchFallbackCount, err = meter.Int64Counter("ncm.search.fallback.count",
		metric.WithDescription("Searches that merged substring fallback results")); err != nil {
		return nil, err
	}
	if m.SearchDegradedCount, err = meter.Int64Counter("ncm.search.degraded.count",
		metric.WithDescription("Searches answered by fallback after a primary failure")); err != nil {
		return nil, err
	}
	if m.RegistryFailureCount, err = meter.Int64Counter("ncm.registry.failure.count",
		metric.WithDescription("Failed external registry lookups")); err != nil {
		return nil, err
	}
	if m.CacheWriteFailureCount, err = meter.Int64Counter("ncm.cache_write.failure.count",
		metric.WithDescription("Failed write-backs of registry records")); err != nil {
		return nil, err
	}
	return m, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, spanName)
}

// RecordError records an error in the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRequestMetric records one HTTP request
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	)
	metrics.RequestCount.Add(ctx, 1, attrs)
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordSearch records the outcome of one search
func (m *Metrics) RecordSearch(ctx context.Context, strategy string, results int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("ncm.strategy", strategy),
		attribute.Bool("ncm.empty", results == 0),
	)
	m.SearchCount.Add(ctx, 1, attrs)
	m.SearchDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordFallback counts a search that used the substring fallback
func (m *Metrics) RecordFallback(ctx context.Context, degraded bool) {
	if m == nil {
		return
	}
	m.SearchFallbackCount.Add(ctx, 1)
	if degraded {
		m.SearchDegradedCount.Add(ctx, 1)
	}
}

// RecordRegistryFailure counts a failed registry lookup
func (m *Metrics) RecordRegistryFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.RegistryFailureCount.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordCacheWriteFailure counts a failed write-back
func (m *Metrics) RecordCacheWriteFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.CacheWriteFailureCount.Add(ctx, 1)
}
