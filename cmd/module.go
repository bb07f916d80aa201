package cmd

import (
	"context"

	"go.uber.org/fx"
)

const (
	CommandersGroupName = "metaroute/cmd/commanders"
	KeepAliveAnnotation = "metaroute/keep-alive"
)

// AsCommander provides constructor into the commanders group.
func AsCommander(constructor any) fx.Option {
	return fx.Provide(fx.Annotate(
		constructor,
		fx.As(new(Commander)),
		fx.ResultTags(`group:"`+CommandersGroupName+`"`),
	))
}

type registerParams struct {
	fx.In

	Root     *Root
	Commands []Commander `group:"metaroute/cmd/commanders"`
}

// Module wires the root command and executes it once every other start hook
// ran. It should be the last option of the application.
func Module(extends ...fx.Option) fx.Option {
	return fx.Module("metaroute/cmd",
		fx.Provide(NewRoot),
		fx.Options(extends...),
		fx.Invoke(RegisterCommands, RegisterExecution),
	)
}

func UseBasicCommands() fx.Option {
	return fx.Options(
		AsCommander(NewHealthcheckCommand),
		AsCommander(NewVersionCommand),
	)
}

func UseRouteCommands() fx.Option {
	return fx.Options(
		AsCommander(NewRoutesListCommand),
		AsCommander(NewRoutesValidateCommand),
	)
}

func UseServeCommand() fx.Option {
	return AsCommander(NewServeCommand)
}

func RegisterCommands(params registerParams) error {
	return params.Root.Register(params.Commands...)
}

// RegisterExecution runs the root command on start. Unless the executed
// command is marked with KeepAliveAnnotation the application shuts down
// after it.
func RegisterExecution(lc fx.Lifecycle, root *Root, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			executed, err := root.Start(context.WithoutCancel(ctx))
			if err != nil {
				return err
			}
			if executed == nil || executed.Annotations[KeepAliveAnnotation] != "true" {
				return shutdowner.Shutdown()
			}
			return nil
		},
	})
}
