// Package v1 wires the v1 version stack and its handler packages.
package v1

import (
	"github.com/bronystylecrazy/metaroute/api/v1/status"
	"github.com/bronystylecrazy/metaroute/api/v1/user"
	"github.com/bronystylecrazy/metaroute/dispatch"
	"go.uber.org/fx"
)

const Version = "v1"

func Module() fx.Option {
	return fx.Module("metaroute/api/v1",
		dispatch.ProvideStack(Version),
		user.Module(),
		status.Module(),
	)
}
