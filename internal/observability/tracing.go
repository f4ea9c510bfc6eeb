package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracing stores the initialized tracer and its shutdown hook.
type Tracing struct {
	Tracer   trace.Tracer
	Shutdown func(context.Context) error
}

// TracingConfig selects the exporter. An empty Endpoint exports to stdout.
type TracingConfig struct {
	Enabled    bool
	Endpoint   string
	SampleRate float64
}

// NoopTracing returns a tracer that records nothing.
func NoopTracing() Tracing {
	return Tracing{
		Tracer:   noop.NewTracerProvider().Tracer("arena"),
		Shutdown: func(context.Context) error { return nil },
	}
}

// SetupTracing initializes OpenTelemetry when cfg.Enabled is set.
func SetupTracing(ctx context.Context, serviceName string, cfg TracingConfig) (Tracing, error) {
	if !cfg.Enabled {
		return NoopTracing(), nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
		),
	)
	if err != nil {
		return Tracing{}, fmt.Errorf("otel resource: %w", err)
	}

	var exp sdktrace.SpanExporter
	if cfg.Endpoint != "" {
		exp, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return Tracing{}, fmt.Errorf("otel otlp exporter: %w", err)
		}
	} else {
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return Tracing{}, fmt.Errorf("otel stdout exporter: %w", err)
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)
	otel.SetTracerProvider(tp)

	return Tracing{
		Tracer:   tp.Tracer(serviceName),
		Shutdown: tp.Shutdown,
	}, nil
}
