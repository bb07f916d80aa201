package otel

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerProvider is a noop provider unless an exporter is configured.
type TracerProvider struct {
	trace.TracerProvider
	sdk *sdktrace.TracerProvider
}

func NewTracerProvider(config Config, res *resource.Resource, exporter sdktrace.SpanExporter) *TracerProvider {
	if exporter == nil {
		return &TracerProvider{TracerProvider: noop.NewTracerProvider()}
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(NewSampler(config.Traces.Sampler, config.Traces.SamplerArg)),
	}
	if strings.EqualFold(config.Traces.Exporter, ExporterMemory) {
		opts = append(opts, sdktrace.WithSyncer(exporter))
	} else {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	sdk := sdktrace.NewTracerProvider(opts...)
	return &TracerProvider{TracerProvider: sdk, sdk: sdk}
}

// Recording reports whether spans leave the process.
func (tp *TracerProvider) Recording() bool {
	return tp.sdk != nil
}

func (tp *TracerProvider) Stop(ctx context.Context) error {
	if tp.sdk == nil {
		return nil
	}
	return tp.sdk.Shutdown(ctx)
}

// NewSampler maps the OTEL_TRACES_SAMPLER names. Unknown names fall back to
// parentbased_always_on.
func NewSampler(name string, arg float64) sdktrace.Sampler {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "always_on":
		return sdktrace.AlwaysSample()
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(arg)
	case "parentbased_always_off":
		return sdktrace.ParentBased(sdktrace.NeverSample())
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(arg))
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}
