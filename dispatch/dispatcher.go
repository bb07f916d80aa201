// Package dispatch selects the API version of a request, runs its middleware
// chain and hands it to the version's index entry point. It is the single
// place where errors are turned into responses.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bronystylecrazy/metaroute/fault"
	"github.com/bronystylecrazy/metaroute/middleware"
	"github.com/bronystylecrazy/metaroute/pathvar"
	"github.com/bronystylecrazy/metaroute/request"
	"github.com/bronystylecrazy/metaroute/response"
	"github.com/bronystylecrazy/metaroute/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

type Options struct {
	Config      Config
	Middlewares middleware.Config
	Metadata    Metadata
	Registry    *middleware.Registry
	Stacks      []Stack
	Logger      *zap.Logger
	Tracer      trace.Tracer
	Metrics     *Metrics
}

type Dispatcher struct {
	cfg      Config
	mwCfg    middleware.Config
	meta     Metadata
	registry *middleware.Registry
	stacks   map[string]Stack
	logger   *zap.Logger
	tracer   trace.Tracer
	metrics  *Metrics
}

func New(opts Options) (*Dispatcher, error) {
	d := &Dispatcher{
		cfg:      opts.Config,
		mwCfg:    opts.Middlewares,
		meta:     opts.Metadata,
		registry: opts.Registry,
		stacks:   map[string]Stack{},
		logger:   opts.Logger,
		tracer:   opts.Tracer,
		metrics:  opts.Metrics,
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.tracer == nil {
		d.tracer = noop.NewTracerProvider().Tracer("")
	}
	if d.registry == nil {
		d.registry = middleware.NewRegistry()
	}
	if d.meta == nil {
		return nil, errors.New("dispatch: metadata source is required")
	}

	allowed := map[string]bool{}
	for _, v := range d.cfg.Versions {
		allowed[strings.ToLower(v)] = true
	}
	for _, stack := range opts.Stacks {
		name := strings.ToLower(stack.Name())
		if len(allowed) > 0 && !allowed[name] {
			d.logger.Info("version stack not enabled", zap.String("version", name))
			continue
		}
		if _, dup := d.stacks[name]; dup {
			return nil, fmt.Errorf("dispatch: version %q registered twice", name)
		}
		d.stacks[name] = stack
	}
	for name := range allowed {
		if _, ok := d.stacks[name]; !ok {
			return nil, fmt.Errorf("dispatch: version %q is enabled but has no stack", name)
		}
	}
	d.cfg.DefaultVersion = strings.ToLower(d.cfg.DefaultVersion)
	if _, ok := d.stacks[d.cfg.DefaultVersion]; !ok {
		return nil, fmt.Errorf("dispatch: default version %q has no stack", d.cfg.DefaultVersion)
	}
	return d, nil
}

// Versions lists the served versions.
func (d *Dispatcher) Versions() []string {
	out := make([]string, 0, len(d.stacks))
	for name := range d.stacks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SelectVersion reads the version token of p at the sequence the path schema
// gives it, or the schema default. An unknown token, or the literal
// "default", selects the configured default version.
func (d *Dispatcher) SelectVersion(p string) string {
	return d.selectVersion(d.meta.Snapshot(), p)
}

func (d *Dispatcher) selectVersion(snap *schema.Snapshot, p string) string {
	var token string
	if key, ok := snap.PathSchema().Key(schema.KeyVersion); ok {
		tokens := pathvar.Split(strings.ToLower(p))
		if key.Sequence < len(tokens) {
			token = tokens[key.Sequence]
		}
		if token == "" {
			token = strings.ToLower(key.Default)
		}
	}
	if _, ok := d.stacks[token]; ok && token != pathvar.DefaultToken {
		return token
	}
	d.logger.Warn("unsupported api version, using default version",
		zap.String("requested", token),
		zap.String("version", d.cfg.DefaultVersion),
	)
	d.metrics.fallback()
	return d.cfg.DefaultVersion
}

// Serve runs one request to completion against a single metadata snapshot.
// Every failure, including a panic or an exceeded deadline, ends as a
// {message, status} JSON body unless a response was already sent.
func (d *Dispatcher) Serve(ctx context.Context, in request.Incoming, out response.Outgoing) {
	start := time.Now()
	snap := d.meta.Snapshot()
	version := d.selectVersion(snap, in.Path())

	ctx, span := d.tracer.Start(ctx, "dispatch", trace.WithAttributes(
		attribute.String("api.version", version),
		attribute.String("http.method", strings.ToUpper(in.Method())),
		attribute.String("url.path", in.Path()),
	))
	defer span.End()

	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	var res atomic.Pointer[response.Context]
	done := make(chan error, 1)
	go func() {
		done <- d.run(ctx, snap, d.stacks[version], in, out, &res)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	err = contextError(err, d.cfg.Timeout)

	status := d.finish(in, out, res.Load(), err)
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fault.MessageOf(err))
	}
	d.metrics.observe(version, status, time.Since(start))
}

func (d *Dispatcher) run(ctx context.Context, snap *schema.Snapshot, stack Stack, in request.Incoming, out response.Outgoing, slot *atomic.Pointer[response.Context]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while serving request", zap.Any("panic", r), zap.Stack("stack"))
			err = fault.Internal(fmt.Errorf("panic: %v", r))
		}
	}()

	req, res, err := stack.NewPair(snap, in, out)
	if err != nil {
		return err
	}
	slot.Store(res)

	chain := middleware.NewBuilder(d.registry, req,
		middleware.WithLogger(d.logger),
		middleware.WithTracer(d.tracer),
	).FromConfig(d.mwCfg).FromRoute(d.cfg.CategorySpecificFirst).Build()
	d.metrics.skipped(len(chain.Skipped()))

	if err := chain.Execute(ctx, req, res); err != nil {
		return err
	}
	return stack.Index(ctx, req, res)
}

func (d *Dispatcher) finish(in request.Incoming, out response.Outgoing, res *response.Context, err error) int {
	if err == nil {
		if res == nil {
			return 0
		}
		return res.Status()
	}
	status := fault.StatusOf(err)
	logger := d.logger.With(zap.String("path", in.Path()), zap.String("method", in.Method()), zap.Int("status", status))
	logger.Error("request failed", zap.Error(err))

	if res != nil {
		if res.IsSent() {
			logger.Warn("response already sent, error not delivered")
			return res.Status()
		}
		if serr := res.SendError(err); serr != nil {
			logger.Error("sending error response failed", zap.Error(serr))
		}
		return status
	}
	if out.Sent() {
		return status
	}
	out.Status(status)
	if serr := out.JSON(fault.Body(err)); serr != nil {
		logger.Error("sending error response failed", zap.Error(serr))
	}
	return status
}

func contextError(err error, timeout time.Duration) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fault.Timeout("request did not complete within %s", timeout).Wrap(err)
	case errors.Is(err, context.Canceled):
		return fault.Timeout("request was canceled").Wrap(err)
	default:
		return err
	}
}
