package rd

import (
	"context"

	redis "github.com/redis/go-redis/v9"
)

// Client is the part of *redis.Client the router's handlers and middlewares
// use.
type Client interface {
	redis.StringCmdable
	redis.HashCmdable
	redis.GenericCmdable
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

var _ Client = (*redis.Client)(nil)
