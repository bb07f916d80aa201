// Package rd provides the redis client backing the sample handlers and the
// hit counter middleware.
package rd

import (
	"context"
	"fmt"

	"github.com/alicebob/miniredis/v2"
	"github.com/bronystylecrazy/metaroute/cfg"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const ModuleName = "metaroute/caching/redis"

func Module(extends ...fx.Option) fx.Option {
	return fx.Module(ModuleName,
		cfg.Section("caching.redis", DefaultConfig()),
		fx.Provide(
			NewLifecycleClient,
			func(c *redis.Client) Client { return c },
		),
		fx.Options(extends...),
	)
}

// NewClient returns a client for cfg and a function releasing it together
// with the embedded server when InMemory is set.
func NewClient(cfg Config) (*redis.Client, func() error, error) {
	options := cfg.Options()
	var server *miniredis.Miniredis
	if cfg.InMemory {
		var err error
		server, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start in-memory redis: %w", err)
		}
		options.Addr = server.Addr()
	}
	client := redis.NewClient(options)
	closeFn := func() error {
		err := client.Close()
		if server != nil {
			server.Close()
		}
		return err
	}
	return client, closeFn, nil
}

func NewLifecycleClient(lc fx.Lifecycle, cfg Config, logger *zap.Logger) (*redis.Client, error) {
	client, closeFn, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warn("redis is not reachable", zap.String("addr", client.Options().Addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return closeFn()
		},
	})
	return client, nil
}
