package otel

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"google.golang.org/grpc/credentials"
)

const (
	ExporterNone   = "none"
	ExporterOTLP   = "otlp"
	ExporterMemory = "memory"
)

func httpTraceCompression(value string) otlptracehttp.Compression {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "gzip":
		return otlptracehttp.GzipCompression
	default:
		return otlptracehttp.NoCompression
	}
}

// NewTraceExporter returns nil when tracing is disabled or the exporter is
// none.
func NewTraceExporter(ctx context.Context, config Config) (sdktrace.SpanExporter, error) {
	if !config.Enabled {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(config.Traces.Exporter)) {
	case "", ExporterNone:
		return nil, nil
	case ExporterMemory:
		return tracetest.NewInMemoryExporter(), nil
	case ExporterOTLP:
	default:
		return nil, fmt.Errorf("otel: unknown traces exporter %q", config.Traces.Exporter)
	}

	otlpCfg := config.Traces.OTLP
	tlsCfg, err := otlpCfg.TLS.Load()
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(strings.ToLower(otlpCfg.Protocol), "http") {
		endpoint, path := otlpCfg.EndpointForHTTP()
		options := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithTimeout(otlpCfg.Timeout),
			otlptracehttp.WithCompression(httpTraceCompression(otlpCfg.Compression)),
		}
		if path != "" {
			options = append(options, otlptracehttp.WithURLPath(path))
		}
		if len(otlpCfg.Headers) > 0 {
			options = append(options, otlptracehttp.WithHeaders(otlpCfg.Headers))
		}
		if otlpCfg.Insecure {
			options = append(options, otlptracehttp.WithInsecure())
		} else if tlsCfg != nil {
			options = append(options, otlptracehttp.WithTLSClientConfig(tlsCfg))
		}
		return otlptracehttp.New(ctx, options...)
	}

	options := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(otlpCfg.EndpointForGRPC()),
		otlptracegrpc.WithTimeout(otlpCfg.Timeout),
	}
	if c := strings.TrimSpace(otlpCfg.Compression); c != "" && c != "none" {
		options = append(options, otlptracegrpc.WithCompressor(c))
	}
	if len(otlpCfg.Headers) > 0 {
		options = append(options, otlptracegrpc.WithHeaders(otlpCfg.Headers))
	}
	if otlpCfg.Insecure {
		options = append(options, otlptracegrpc.WithInsecure())
	} else if tlsCfg != nil {
		options = append(options, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(tlsCfg)))
	}
	return otlptracegrpc.New(ctx, options...)
}
