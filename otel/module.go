// Package otel configures request tracing. With tracing disabled every span
// goes to a noop provider.
package otel

import (
	"context"

	"github.com/bronystylecrazy/metaroute/cfg"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ModuleName  = "metaroute/otel"
	TracerName  = "github.com/bronystylecrazy/metaroute"
	sectionName = "otel"
)

func Module(extends ...fx.Option) fx.Option {
	return fx.Module(ModuleName,
		fx.Provide(
			NewConfig,
			func(c Config) (*resource.Resource, error) { return NewResource(context.Background(), c) },
			func(c Config) (sdktrace.SpanExporter, error) { return NewTraceExporter(context.Background(), c) },
			NewTracerProvider,
			NewTracer,
		),
		fx.Invoke(RegisterTracerProvider),
		fx.Options(extends...),
	)
}

// NewConfig decodes the otel section and overlays the OTEL_* variables.
func NewConfig(v *viper.Viper) (Config, error) {
	c, err := cfg.Decode(v, sectionName, DefaultConfig())
	if err != nil {
		return Config{}, err
	}
	return ApplyEnv(c, nil), nil
}

func NewTracer(tp *TracerProvider) trace.Tracer {
	return tp.Tracer(TracerName)
}

func RegisterTracerProvider(lc fx.Lifecycle, config Config, tp *TracerProvider, logger *zap.Logger) {
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Debug("tracing configured",
				zap.Bool("enabled", config.Enabled),
				zap.String("exporter", config.Traces.Exporter),
				zap.Bool("recording", tp.Recording()),
			)
			return nil
		},
		OnStop: tp.Stop,
	})
}
