package cmd

import (
	"fmt"

	"github.com/bronystylecrazy/metaroute/dispatch"
	"github.com/bronystylecrazy/metaroute/middleware"
	"github.com/bronystylecrazy/metaroute/schema"
	"github.com/bronystylecrazy/metaroute/web"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serveCommandParams struct {
	fx.In

	Server      *web.Server
	Store       *schema.Store
	Handlers    *dispatch.HandlerRegistry
	Middlewares *middleware.Registry
	MwConfig    middleware.Config
	Dispatcher  *dispatch.Dispatcher
	Logger      *zap.Logger
}

type ServeCommand struct {
	params serveCommandParams
}

func NewServeCommand(in serveCommandParams) *ServeCommand {
	return &ServeCommand{params: in}
}

func (s *ServeCommand) Command() *cobra.Command {
	return &cobra.Command{
		Use:           "serve",
		Short:         "Validate the route metadata and serve HTTP",
		SilenceErrors: true,
		RunE:          s.Run,
		Annotations:   map[string]string{KeepAliveAnnotation: "true"},
	}
}

// Run returns once the listener is bound; the application keeps serving until
// it receives a stop signal.
func (s *ServeCommand) Run(cmd *cobra.Command, args []string) error {
	p := s.params
	if err := dispatch.Validate(p.Store.Snapshot(), p.Handlers, p.Middlewares, p.MwConfig); err != nil {
		return fmt.Errorf("route metadata is invalid: %w", err)
	}
	if err := p.Server.Start(); err != nil {
		return err
	}
	p.Logger.Info("serving api versions", zap.Strings("versions", p.Dispatcher.Versions()))
	return nil
}
