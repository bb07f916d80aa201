// Package common holds the middlewares referenced as "./common-><name>" from
// metadata and configuration.
//
// Middlewares never send a response. They fail a request by returning a
// fault error and hand data to handlers through SetMiddlewareData.
package common

import (
	"context"
	"strings"

	"github.com/bronystylecrazy/metaroute/caching/rd"
	"github.com/bronystylecrazy/metaroute/middleware"
	"github.com/bronystylecrazy/metaroute/request"
	"github.com/bronystylecrazy/metaroute/response"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	File = "middlewares/common"

	RequestIDHeader = "X-Request-Id"
	RequestIDKey    = "requestId"
	HitsKey         = "hits"
)

type Middlewares struct {
	logger *zap.Logger
	redis  rd.Client
	keys   rd.Config
}

func New(logger *zap.Logger, redis rd.Client, keys rd.Config) *Middlewares {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middlewares{logger: logger, redis: redis, keys: keys}
}

// Register binds every middleware of this file into reg.
func (m *Middlewares) Register(reg *middleware.Registry) error {
	for name, fn := range map[string]middleware.Func{
		"someMiddleware": m.SomeMiddleware,
		"requestId":      m.RequestID,
		"hitCounter":     m.HitCounter,
	} {
		if err := reg.Register(File, name, fn); err != nil {
			return err
		}
	}
	return nil
}

func (m *Middlewares) SomeMiddleware(_ context.Context, req *request.Context, res *response.Context) error {
	req.SetMiddlewareData("someKey", "someValue")
	m.logger.Debug("someMiddleware", zap.Int("status", res.Status()))
	return nil
}

// RequestID keeps the caller's X-Request-Id or generates one.
func (m *Middlewares) RequestID(_ context.Context, req *request.Context, _ *response.Context) error {
	id := strings.TrimSpace(req.Header(RequestIDHeader))
	if id == "" {
		id = uuid.NewString()
	}
	req.SetMiddlewareData(RequestIDKey, id)
	return nil
}

// HitCounter counts requests per route in redis. A redis failure is logged
// and does not fail the request.
func (m *Middlewares) HitCounter(ctx context.Context, req *request.Context, _ *response.Context) error {
	if m.redis == nil {
		return nil
	}
	key := m.keys.Key(HitsKey, req.Version()+"/"+req.Category()+"/"+req.RequestName())
	n, err := m.redis.Incr(ctx, key).Result()
	if err != nil {
		m.logger.Warn("counting hit failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	req.SetMiddlewareData(HitsKey, n)
	return nil
}

func Module() fx.Option {
	return fx.Module("metaroute/middlewares/common",
		fx.Provide(func(logger *zap.Logger, redis rd.Client, keys rd.Config) *Middlewares {
			return New(logger.Named("middleware"), redis, keys)
		}),
		fx.Invoke(func(m *Middlewares, reg *middleware.Registry) error {
			return m.Register(reg)
		}),
	)
}
