// Package telemetry wraps the engine's OpenTelemetry tracer setup: a
// process-wide tracer provider and span helpers around the facade
// operations that cross the external boundary (§6).
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Service identity attributes attached to every span.
const (
	ServiceName    = "procflow"
	InstrumentName = "procflow.engine"
)

// Attribute keys used across the spans below.
const (
	KeyGraphID    = "procflow.graph_id"
	KeyInstanceID = "procflow.instance_id"
	KeyPinID      = "procflow.pin_id"
)

// Init installs a process-wide TracerProvider. With no exporter registered
// this simply assembles spans in memory and drops them on End — enough to
// exercise the tracing API surface without depending on a collector
// endpoint, which §6 leaves as an external, out-of-scope transport concern.
func Init() (*sdktrace.TracerProvider, error) {
	res, err := resource.New(context.Background(), resource.WithAttributes(
		attribute.String("service.name", ServiceName),
	))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	return tp, nil
}

func tracer() trace.Tracer {
	return otel.Tracer(InstrumentName)
}

// StartBootGraph starts a span around a boot_graph call.
func StartBootGraph(ctx context.Context, graphID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "boot_graph", trace.WithAttributes(
		attribute.String(KeyGraphID, graphID),
	))
}

// StartComputeOutput starts a span around a compute_output_pin_value call.
func StartComputeOutput(ctx context.Context, instanceID, pinID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "compute_output_pin_value", trace.WithAttributes(
		attribute.String(KeyInstanceID, instanceID),
		attribute.String(KeyPinID, pinID),
	))
}

// StartSendValue starts a span around a send_value call.
func StartSendValue(ctx context.Context, instanceID, pinID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "send_value", trace.WithAttributes(
		attribute.String(KeyInstanceID, instanceID),
		attribute.String(KeyPinID, pinID),
	))
}
