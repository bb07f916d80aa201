// Package metaroute composes the router application: configuration, logging,
// tracing, redis, the dispatcher with its version stacks and the CLI.
package metaroute

import (
	"context"
	"fmt"

	v1 "github.com/bronystylecrazy/metaroute/api/v1"
	"github.com/bronystylecrazy/metaroute/caching/rd"
	"github.com/bronystylecrazy/metaroute/cfg"
	"github.com/bronystylecrazy/metaroute/cmd"
	"github.com/bronystylecrazy/metaroute/dispatch"
	"github.com/bronystylecrazy/metaroute/log"
	"github.com/bronystylecrazy/metaroute/middlewares/common"
	"github.com/bronystylecrazy/metaroute/otel"
	"github.com/bronystylecrazy/metaroute/web"
	"go.uber.org/fx"
)

type App struct {
	config  cfg.Options
	options []fx.Option
}

// New returns the application reading config. extends are added before the
// CLI module so they can provide commanders and version stacks.
func New(config cfg.Options, extends ...fx.Option) *App {
	return &App{config: config, options: extends}
}

func (a *App) Build() fx.Option {
	return fx.Options(
		cfg.Module(a.config),
		log.Module(),
		otel.Module(),
		rd.Module(),
		dispatch.Module(),
		common.Module(),
		v1.Module(),
		cmd.Use("serve", web.Module(), cmd.UseServeCommand()),
		fx.Options(a.options...),
		cmd.Module(
			cmd.UseBasicCommands(),
			cmd.UseRouteCommands(),
		),
	)
}

// Run starts the application, waits for a shutdown signal and stops it.
// A non zero exit code requested through fx.Shutdowner is returned as an
// error.
func (a *App) Run() error {
	app := fx.New(a.Build())
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	sig := <-app.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		return err
	}
	if sig.ExitCode != 0 {
		return fmt.Errorf("exit code %d", sig.ExitCode)
	}
	return nil
}
