// Package tracing bootstraps the OpenTelemetry tracer provider used to
// trace incoming HTTP requests via otelgin. A server that never set
// OTEL_COLLECTOR_ADDR gets a no-op provider: tracing is an ambient
// concern the lobby server carries, never a hard dependency on a
// collector being reachable.
package tracing

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Shutdown stops the tracer provider, flushing any buffered spans. A
// no-op provider's Shutdown is itself a no-op.
type Shutdown func(context.Context) error

// InitTracer initializes the OpenTelemetry tracer provider and
// registers it as the global provider. If collectorAddr is empty, it
// returns immediately without registering anything, leaving otel's
// default no-op global provider in place: tracing is disabled, not an
// error.
func InitTracer(ctx context.Context, serviceName, collectorAddr string) (Shutdown, error) {
	if collectorAddr == "" {
		return func(context.Context) error { return nil }, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if os.Getenv("OTEL_INSECURE_SKIP_VERIFY") == "true" {
		tlsConfig.InsecureSkipVerify = true
	}

	creds := credentials.NewTLS(tlsConfig)
	conn, err := grpc.NewClient(collectorAddr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC client to collector: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
