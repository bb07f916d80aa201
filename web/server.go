package web

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/bronystylecrazy/metaroute/fault"
	"github.com/bronystylecrazy/metaroute/request"
	"github.com/bronystylecrazy/metaroute/response"
	fiberzap "github.com/gofiber/contrib/v3/zap"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dispatcher serves one request through the metadata driven pipeline.
type Dispatcher interface {
	Serve(ctx context.Context, in request.Incoming, out response.Outgoing)
}

// Handler adapts d to fiber. The response is written once the pipeline
// returns.
func Handler(d Dispatcher) fiber.Handler {
	return func(c fiber.Ctx) error {
		w := NewWriter()
		in, err := NewRequest(c)
		if err != nil {
			w.Status(fault.StatusOf(err))
			if err := w.JSON(fault.Body(err)); err != nil {
				return err
			}
			return w.Flush(c)
		}
		d.Serve(c.Context(), in, w)
		return w.Flush(c)
	}
}

// Mount installs the access log, CORS, the metrics endpoint and the catch-all
// route on app. gatherer may be nil.
func Mount(app *fiber.App, config Config, d Dispatcher, gatherer prometheus.Gatherer, logger *zap.Logger) {
	if config.AccessLog && logger != nil {
		app.Use(fiberzap.New(fiberzap.Config{Logger: logger.Named("access")}))
	}
	if config.CORS.Enabled {
		app.Use(cors.New(cors.Config{
			AllowOrigins: config.CORS.AllowOrigins,
			AllowHeaders: config.CORS.AllowHeaders,
		}))
	}
	if config.MetricsPath != "" && gatherer != nil {
		app.Get(config.MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	app.All("/*", Handler(d))
}

type Server struct {
	app    *fiber.App
	config Config
	logger *zap.Logger

	mu      sync.Mutex
	running bool
}

func NewServer(app *fiber.App, config Config, logger *zap.Logger) *Server {
	return &Server{app: app, config: config, logger: logger.Named("web")}
}

// Start binds the listen address and serves in the background. Bind errors
// are returned directly.
func (s *Server) Start() error {
	listenConfig, err := BuildFiberListenConfig(s.config)
	if err != nil {
		return err
	}
	addr := ParseAddr(s.config)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.app.Listener(ln, listenConfig); err != nil {
			s.logger.Error("http server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	running := s.running
	s.running = false
	s.mu.Unlock()
	if !running {
		return nil
	}
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
