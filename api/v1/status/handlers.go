// Package status serves the v1 status category.
package status

import (
	"context"
	"net/http"
	"time"

	"github.com/bronystylecrazy/metaroute/build"
	"github.com/bronystylecrazy/metaroute/caching/rd"
	"github.com/bronystylecrazy/metaroute/dispatch"
	"github.com/bronystylecrazy/metaroute/middlewares/common"
	"github.com/bronystylecrazy/metaroute/request"
	"github.com/bronystylecrazy/metaroute/response"
	"go.uber.org/fx"
)

const File = "v1/status/handlers"

type Handlers struct {
	redis   rd.Client
	started time.Time
}

func New(redis rd.Client) *Handlers {
	return &Handlers{redis: redis, started: time.Now()}
}

func (h *Handlers) Register(reg *dispatch.HandlerRegistry) error {
	if err := reg.Register(File, "ping", h.Ping); err != nil {
		return err
	}
	return reg.Register(File, "info", h.Info)
}

func (h *Handlers) Ping(_ context.Context, req *request.Context, _ *response.Context) (response.Payload, error) {
	out := response.Payload{"message": "pong", "status": http.StatusOK}
	if id, ok := req.MiddlewareData(common.RequestIDKey); ok {
		out["requestId"] = id
	}
	return out, nil
}

// Info reports build information and whether redis answers.
func (h *Handlers) Info(ctx context.Context, _ *request.Context, _ *response.Context) (response.Payload, error) {
	info := build.Current()
	redisStatus := "up"
	if h.redis == nil {
		redisStatus = "disabled"
	} else if err := h.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "down"
	}
	return response.Payload{
		"message":   "service information",
		"status":    http.StatusOK,
		"name":      info.Name,
		"version":   info.Version,
		"commit":    info.Commit,
		"buildDate": info.BuildDate,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"redis":     redisStatus,
	}, nil
}

func Module() fx.Option {
	return fx.Options(
		fx.Provide(New),
		fx.Invoke(func(h *Handlers, reg *dispatch.HandlerRegistry) error {
			return h.Register(reg)
		}),
	)
}
