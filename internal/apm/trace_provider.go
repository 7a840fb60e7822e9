// Package apm sets up OpenTelemetry tracing.
package apm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/ethersense/internal/logger"
)

type Provider string

const (
	ZipkinProvider   Provider = "ZIPKIN_PROVIDER"
	OTLPGRPCProvider Provider = "OTLP_GRPC_PROVIDER"
	OTLPHTTPProvider Provider = "OTLP_HTTP_PROVIDER"
	ConsoleProvider  Provider = "CONSOLE_PROVIDER"
	EmptyProvider    Provider = "EMPTY_PROVIDER"
)

type TraceProvider interface {
	Stop() error
}

type emptyTraceProvider struct{}

func (emptyTraceProvider) Stop() error { return nil }

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

// TracerOptions selects and configures the span exporter.
type TracerOptions struct {
	ServiceName string
	Provider    Provider
	Endpoint    string
	// Headers is a comma separated key=value list, e.g. "x-api-key=abc".
	Headers string
	// Console is where ConsoleProvider writes; nil means stdout.
	Console io.Writer
}

// SelectProvider picks the exporter for the configured endpoints: zipkin
// wins over OTLP, and nothing configured means no tracing.
func SelectProvider(zipkinURL, otlpEndpoint string) (Provider, string) {
	switch {
	case zipkinURL != "":
		return ZipkinProvider, zipkinURL
	case strings.HasPrefix(otlpEndpoint, "http://"), strings.HasPrefix(otlpEndpoint, "https://"):
		return OTLPHTTPProvider, otlpEndpoint
	case otlpEndpoint != "":
		return OTLPGRPCProvider, otlpEndpoint
	}
	return EmptyProvider, ""
}

// NewTraceProvider installs a global tracer provider and propagator.
func NewTraceProvider(ctx context.Context, opts TracerOptions, log logger.LoggerInterface) (TraceProvider, error) {
	if opts.Provider == "" || opts.Provider == EmptyProvider {
		return emptyTraceProvider{}, nil
	}

	exp, err := newExporter(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%s exporter: %w", opts.Provider, err)
	}

	rsrc, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(opts.ServiceName),
			attribute.String("otel.provider", string(opts.Provider)),
		))
	if err != nil {
		log.Warn(ctx, "trace resource merge failed, using default resource", "error", err)
		rsrc = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	log.Info(ctx, "tracing initialized", "provider", string(opts.Provider))
	return &traceProvider{tp}, nil
}

func newExporter(ctx context.Context, opts TracerOptions) (sdktrace.SpanExporter, error) {
	switch opts.Provider {
	case ZipkinProvider:
		return zipkin.New(opts.Endpoint)
	case OTLPHTTPProvider:
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(opts.Endpoint),
			otlptracehttp.WithHeaders(ParseHeaders(opts.Headers)),
		)
	case OTLPGRPCProvider:
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(opts.Endpoint),
			otlptracegrpc.WithHeaders(ParseHeaders(opts.Headers)),
		)
	case ConsoleProvider:
		stdoutOpts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if opts.Console != nil {
			stdoutOpts = append(stdoutOpts, stdouttrace.WithWriter(opts.Console))
		}
		return stdouttrace.New(stdoutOpts...)
	}
	return nil, fmt.Errorf("unknown trace provider %q", opts.Provider)
}

// ParseHeaders turns "k1=v1,k2=v2" into a map. Malformed pairs are skipped.
func ParseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return headers
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	return o.tp.Shutdown(ctx)
}
