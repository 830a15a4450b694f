// Package tracing bootstraps the global OpenTelemetry tracer provider
// used by pkg/segment. Adapted from the codebase's own
// pkg/trace bootstrap: the OTLP/gRPC exporter path is dropped since
// this module carries no grpc/protobuf dependency (see DESIGN.md) —
// "stdout" and "none" are the two supported exporters here.
package tracing

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies this module's tracer in the global provider.
const TracerName = "github.com/cleanstream/cleanstream"

var (
	provider *sdktrace.TracerProvider
	mu       sync.Mutex
)

// Config configures the tracer provider.
type Config struct {
	ServiceName string
	// ExporterType is "stdout" or "none".
	ExporterType string
}

// DefaultConfig returns a stdout-exporting configuration, overridable
// via CLEANSTREAM_TRACE_EXPORTER.
func DefaultConfig() Config {
	return Config{
		ServiceName:  "cleanstreamd",
		ExporterType: getEnv("CLEANSTREAM_TRACE_EXPORTER", "stdout"),
	}
}

// Initialize sets the global tracer provider. Safe to call once.
func Initialize(ctx context.Context, cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if provider != nil {
		return fmt.Errorf("tracing: already initialized")
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return fmt.Errorf("tracing: building resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.ExporterType {
	case "stdout", "":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("tracing: creating stdout exporter: %w", err)
		}
	case "none":
		exporter = noopExporter{}
	default:
		return fmt.Errorf("tracing: unsupported exporter type %q", cfg.ExporterType)
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	log.Printf("[tracing] initialized with exporter=%s", cfg.ExporterType)
	return nil
}

// Shutdown flushes and releases the tracer provider.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	if provider == nil {
		return nil
	}
	err := provider.Shutdown(ctx)
	provider = nil
	return err
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type noopExporter struct{}

func (noopExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	return nil
}

func (noopExporter) Shutdown(ctx context.Context) error { return nil }

var _ trace.TracerProvider = (*sdktrace.TracerProvider)(nil)
