// Package web serves the dispatcher over HTTP with fiber.
package web

import (
	"context"

	"github.com/bronystylecrazy/metaroute/cfg"
	"github.com/bronystylecrazy/metaroute/dispatch"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const ModuleName = "metaroute/web"

func Module(extends ...fx.Option) fx.Option {
	return fx.Module(ModuleName,
		cfg.Section("web", DefaultConfig()),
		fx.Provide(NewFiberApp, NewServer),
		fx.Invoke(MountDispatcher, RegisterServer),
		fx.Options(extends...),
	)
}

type MountParams struct {
	fx.In

	App        *fiber.App
	Config     Config
	Dispatcher *dispatch.Dispatcher
	Gatherer   prometheus.Gatherer `optional:"true"`
	Logger     *zap.Logger
}

func MountDispatcher(p MountParams) {
	Mount(p.App, p.Config, p.Dispatcher, p.Gatherer, p.Logger)
}

// RegisterServer stops the server with the application. Starting is left to
// the serve command.
func RegisterServer(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}
