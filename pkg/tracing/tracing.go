// Package tracing sets up OpenTelemetry with a Jaeger exporter and
// provides span helpers for the signaling pipeline.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "medrelay"

type Config struct {
	Enabled     bool
	ServiceName string
	JaegerURL   string
	Environment string
	SampleRate  float64
}

// TracerProvider owns the SDK provider so main can flush spans on
// shutdown. The zero value is a no-op provider for disabled tracing.
type TracerProvider struct {
	tp *tracesdk.TracerProvider
}

// Init installs the global tracer provider and propagators. When
// tracing is disabled it returns a no-op provider and touches nothing
// global, so span helpers stay safe to call.
func Init(cfg Config) (*TracerProvider, error) {
	if !cfg.Enabled {
		return &TracerProvider{}, nil
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerURL)))
	if err != nil {
		return nil, fmt.Errorf("create jaeger exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(res),
		tracesdk.WithSampler(tracesdk.TraceIDRatioBased(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{tp: tp}, nil
}

func (p *TracerProvider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

var (
	roomIDKey       = attribute.Key("room.id")
	connectionIDKey = attribute.Key("connection.id")
	messageTypeKey  = attribute.Key("message.type")
)

// TraceHTTPRequest starts a span for one HTTP request.
func TraceHTTPRequest(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "http."+method,
		trace.WithAttributes(
			semconv.HTTPMethodKey.String(method),
			semconv.HTTPRouteKey.String(path),
		),
	)
}

// TraceSignalMessage starts a span for one inbound signaling message.
func TraceSignalMessage(ctx context.Context, messageType, connectionID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "signal."+messageType,
		trace.WithAttributes(
			messageTypeKey.String(messageType),
			connectionIDKey.String(connectionID),
		),
	)
}

// TraceRoomOperation starts a span for a room membership operation.
func TraceRoomOperation(ctx context.Context, operation, roomID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "room."+operation,
		trace.WithAttributes(
			attribute.String("room.operation", operation),
			roomIDKey.String(roomID),
		),
	)
}

// RecordError marks the current span failed with err.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
