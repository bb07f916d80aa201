package dispatch

import (
	"context"

	"github.com/bronystylecrazy/metaroute/fault"
	"github.com/bronystylecrazy/metaroute/request"
	"github.com/bronystylecrazy/metaroute/response"
	"github.com/bronystylecrazy/metaroute/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Stack is one API version: it builds the request/response pair and runs the
// version's index entry point.
type Stack interface {
	Name() string
	// NewPair builds the pair against snap, the metadata the whole request
	// is served from.
	NewPair(snap *schema.Snapshot, in request.Incoming, out response.Outgoing) (*request.Context, *response.Context, error)
	Index(ctx context.Context, req *request.Context, res *response.Context) error
}

// Metadata hands out the current metadata snapshot.
type Metadata interface {
	Snapshot() *schema.Snapshot
}

type StackOptions struct {
	Handlers *HandlerRegistry
	Response response.Config
	Logger   *zap.Logger
	Tracer   trace.Tracer
}

// VersionStack is the Stack every version uses unless it needs its own.
type VersionStack struct {
	name     string
	handlers *HandlerRegistry
	response response.Config
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewStack(name string, opts StackOptions) *VersionStack {
	s := &VersionStack{
		name:     name,
		handlers: opts.Handlers,
		response: opts.Response,
		logger:   opts.Logger,
		tracer:   opts.Tracer,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("")
	}
	s.logger = s.logger.With(zap.String("version", name))
	return s
}

func (s *VersionStack) Name() string { return s.name }

func (s *VersionStack) NewPair(snap *schema.Snapshot, in request.Incoming, out response.Outgoing) (*request.Context, *response.Context, error) {
	req, err := request.New(in, request.Options{
		Version:       s.name,
		PathSchema:    snap.PathSchema(),
		SupportSchema: snap.SupportSchema(),
		Routes:        snap,
	})
	if err != nil {
		return nil, nil, err
	}
	res, err := response.New(out, response.Options{
		Support: req.SupportParams(),
		Schemas: snap.ResponseSchemas(s.name),
		Config:  s.response,
		Logger:  s.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return req, res, nil
}

// Index resolves and runs the handler, then shapes and sends its payload. A
// failure is turned into a {message, status} payload and sent through the
// same shaping, unless something was already sent. An error is returned only
// when that fallback fails too.
func (s *VersionStack) Index(ctx context.Context, req *request.Context, res *response.Context) error {
	err := s.index(ctx, req, res)
	if err == nil {
		return nil
	}
	s.logger.Error("request handling failed",
		zap.String("category", req.Category()),
		zap.String("request", req.RequestName()),
		zap.String("method", req.Method()),
		zap.Error(err),
	)
	if res.IsSent() {
		return nil
	}
	if err := res.Handling(fault.Body(err), false); err != nil {
		return err
	}
	return res.Send()
}

func (s *VersionStack) index(ctx context.Context, req *request.Context, res *response.Context) error {
	fn, err := ResolveHandler(s.handlers, req)
	if err != nil {
		return err
	}
	payload, err := s.call(ctx, fn, req, res)
	if err != nil {
		return err
	}
	if err := res.Handling(payload, false); err != nil {
		return err
	}
	return res.Send()
}

func (s *VersionStack) call(ctx context.Context, fn HandlerFunc, req *request.Context, res *response.Context) (response.Payload, error) {
	ctx, span := s.tracer.Start(ctx, "handler", trace.WithAttributes(
		attribute.String("handler.ref", req.HandlerRef()),
		attribute.String("route.category", req.Category()),
		attribute.String("route.request", req.RequestName()),
	))
	defer span.End()
	payload, err := fn(ctx, req, res)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return payload, err
}
