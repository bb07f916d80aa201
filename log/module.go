package log

import (
	"github.com/bronystylecrazy/metaroute/cfg"
	"go.uber.org/fx"
)

const ModuleName = "metaroute/log"

func Module(extends ...fx.Option) fx.Option {
	return fx.Module(ModuleName,
		cfg.Section("log", DefaultConfig()),
		fx.Provide(NewZapLogger),
		fx.WithLogger(NewEventLogger),
		fx.Options(extends...),
	)
}
