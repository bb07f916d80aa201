package dispatch

import (
	"os"

	"github.com/bronystylecrazy/metaroute/cfg"
	"github.com/bronystylecrazy/metaroute/middleware"
	"github.com/bronystylecrazy/metaroute/response"
	"github.com/bronystylecrazy/metaroute/schema"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ModuleName = "metaroute/dispatch"
	StackGroup = `group:"stacks"`
)

func Module(extends ...fx.Option) fx.Option {
	return fx.Module(ModuleName,
		cfg.Section("router", DefaultConfig()),
		cfg.Section("middlewares", middleware.Config{}),
		cfg.Section("response", response.Config{RequiredKeys: []string{"message", "status"}}),
		fx.Provide(
			NewHandlerRegistry,
			middleware.NewRegistry,
			NewStore,
			func(s *schema.Store) Metadata { return s },
			NewPrometheusRegistry,
			NewMetrics,
			NewFromParams,
		),
		fx.Invoke(RegisterWatcher),
		fx.Options(extends...),
	)
}

func NewStore(cfg Config, logger *zap.Logger) (*schema.Store, error) {
	return schema.NewStore(schema.NewLoader(os.DirFS(cfg.MetadataDir)), logger.Named("schema"))
}

// NewPrometheusRegistry returns the registry the dispatcher collectors live
// in. It is exposed as a Registerer for collectors and a Gatherer for the
// /metrics endpoint.
func NewPrometheusRegistry() (*prometheus.Registry, prometheus.Registerer, prometheus.Gatherer) {
	reg := prometheus.NewRegistry()
	return reg, reg, reg
}

type Params struct {
	fx.In

	Config      Config
	Middlewares middleware.Config
	Metadata    Metadata
	Registry    *middleware.Registry
	Stacks      []Stack `group:"stacks"`
	Logger      *zap.Logger
	Tracer      trace.Tracer `optional:"true"`
	Metrics     *Metrics
}

func NewFromParams(p Params) (*Dispatcher, error) {
	return New(Options{
		Config:      p.Config,
		Middlewares: p.Middlewares,
		Metadata:    p.Metadata,
		Registry:    p.Registry,
		Stacks:      p.Stacks,
		Logger:      p.Logger.Named("dispatch"),
		Tracer:      p.Tracer,
		Metrics:     p.Metrics,
	})
}

type StackParams struct {
	fx.In

	Handlers *HandlerRegistry
	Response response.Config
	Logger   *zap.Logger
	Tracer   trace.Tracer `optional:"true"`
}

// ProvideStack registers a VersionStack named name in the stacks group.
func ProvideStack(name string) fx.Option {
	return fx.Provide(fx.Annotate(
		func(p StackParams) Stack {
			return NewStack(name, StackOptions{
				Handlers: p.Handlers,
				Response: p.Response,
				Logger:   p.Logger.Named("stack"),
				Tracer:   p.Tracer,
			})
		},
		fx.ResultTags(StackGroup),
	))
}

func RegisterWatcher(lc fx.Lifecycle, cfg Config, store *schema.Store, logger *zap.Logger) {
	if !cfg.Watch {
		return
	}
	w := schema.NewWatcher(store, cfg.MetadataDir, schema.DefaultWatchDebounce, logger.Named("schema"))
	lc.Append(fx.Hook{
		OnStart: w.Start,
		OnStop:  w.Stop,
	})
}
