// Package middleware builds the ordered list of middlewares that run before a
// handler and executes it.
//
// A chain is merged from three sources: the global list from configuration,
// the category wide list of the route table and the list bound to the request
// method. Every reference is normalized against Anchor, merged with the first
// occurrence winning and resolved through a Registry. References that cannot
// be resolved are skipped and reported.
package middleware

import (
	"context"
	"fmt"
	"slices"

	"github.com/bronystylecrazy/metaroute/funcref"
	"github.com/bronystylecrazy/metaroute/request"
	"github.com/bronystylecrazy/metaroute/response"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Anchor is the registry directory that middleware references resolve
// against.
const Anchor = "middlewares"

// Func is a middleware. It must not send the response; it talks to later
// stages through the request side channel and aborts the request by
// returning an error.
type Func func(ctx context.Context, req *request.Context, res *response.Context) error

type Registry = funcref.Registry[Func]

func NewRegistry() *Registry {
	return funcref.NewRegistry[Func]()
}

type Config struct {
	// AllRequests lists references that run for every request.
	AllRequests []string `mapstructure:"all_requests"`
}

// Skipped is a reference that was dropped while building a chain.
type Skipped struct {
	Ref    string
	Reason error
}

func (s Skipped) String() string {
	return fmt.Sprintf("%s: %v", s.Ref, s.Reason)
}

type pending struct {
	raw string
	ref funcref.Ref
	err error
}

func (p pending) key() string {
	if p.err != nil {
		return p.raw
	}
	return p.ref.String()
}

type Builder struct {
	registry *Registry
	req      *request.Context
	logger   *zap.Logger
	tracer   trace.Tracer

	refs  []pending
	seen  map[string]struct{}
	front []Func
	back  []Func
}

type Option func(*Builder)

func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(b *Builder) {
		if tracer != nil {
			b.tracer = tracer
		}
	}
}

func NewBuilder(registry *Registry, req *request.Context, opts ...Option) *Builder {
	b := &Builder{
		registry: registry,
		req:      req,
		logger:   zap.NewNop(),
		tracer:   noop.NewTracerProvider().Tracer(""),
		seen:     map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FromConfig appends the global references.
func (b *Builder) FromConfig(cfg Config) *Builder {
	b.append(cfg.AllRequests)
	return b
}

// FromRoute appends the category wide and method specific references of the
// request route. With categoryFirst the category list goes first.
func (b *Builder) FromRoute(categoryFirst bool) *Builder {
	route := b.req.Route()
	category := route.CategoryMiddlewares()
	path := route.Middlewares(b.req.Method())
	if categoryFirst {
		b.append(category)
		b.append(path)
	} else {
		b.append(path)
		b.append(category)
	}
	return b
}

func (b *Builder) append(raws []string) {
	for _, raw := range raws {
		p := pending{raw: raw}
		p.ref, p.err = funcref.Resolve(Anchor, raw)
		if _, dup := b.seen[p.key()]; dup {
			continue
		}
		b.seen[p.key()] = struct{}{}
		b.refs = append(b.refs, p)
	}
}

// Add appends fn after every resolved reference. Runtime functions are not
// de-duplicated.
func (b *Builder) Add(fn Func) *Builder {
	if fn != nil {
		b.back = append(b.back, fn)
	}
	return b
}

// AddToFront puts fn before everything added so far.
func (b *Builder) AddToFront(fn Func) *Builder {
	if fn != nil {
		b.front = append([]Func{fn}, b.front...)
	}
	return b
}

// Paths returns the merged, normalized references in execution order.
func (b *Builder) Paths() []string {
	out := make([]string, 0, len(b.refs))
	for _, p := range b.refs {
		out = append(out, p.key())
	}
	return out
}

// Build resolves the merged references. Unresolvable ones are logged and
// returned in the chain's Skipped list.
func (b *Builder) Build() *Chain {
	chain := &Chain{tracer: b.tracer}
	for _, fn := range b.front {
		chain.links = append(chain.links, link{name: "runtime", fn: fn})
	}

	seen := map[*funcref.Entry[Func]]struct{}{}
	for _, p := range b.refs {
		if p.err != nil {
			chain.skip(b.logger, p.raw, p.err)
			continue
		}
		entry, err := b.registry.Lookup(p.ref)
		if err != nil {
			chain.skip(b.logger, p.raw, fmt.Errorf("%w, importing middleware fails", err))
			continue
		}
		if _, dup := seen[entry]; dup {
			continue
		}
		seen[entry] = struct{}{}
		chain.links = append(chain.links, link{name: entry.Ref.String(), fn: entry.Fn})
	}

	for _, fn := range b.back {
		chain.links = append(chain.links, link{name: "runtime", fn: fn})
	}
	return chain
}

type link struct {
	name string
	fn   Func
}

// Chain is a resolved, ordered list of middlewares.
type Chain struct {
	links   []link
	skipped []Skipped
	tracer  trace.Tracer
}

func (c *Chain) skip(logger *zap.Logger, raw string, reason error) {
	c.skipped = append(c.skipped, Skipped{Ref: raw, Reason: reason})
	logger.Warn("skipping middleware", zap.String("ref", raw), zap.Error(reason))
}

func (c *Chain) Len() int {
	return len(c.links)
}

// Names lists the resolved references in order. Runtime functions are
// reported as "runtime".
func (c *Chain) Names() []string {
	out := make([]string, 0, len(c.links))
	for _, l := range c.links {
		out = append(out, l.name)
	}
	return out
}

func (c *Chain) Skipped() []Skipped {
	return slices.Clone(c.skipped)
}

// Execute runs the chain in order. It stops at the first error, which is
// returned unchanged, or when ctx is done.
func (c *Chain) Execute(ctx context.Context, req *request.Context, res *response.Context) error {
	for _, l := range c.links {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.run(ctx, l, req, res); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) run(ctx context.Context, l link, req *request.Context, res *response.Context) error {
	ctx, span := c.tracer.Start(ctx, "middleware", trace.WithAttributes(attribute.String("middleware.ref", l.name)))
	defer span.End()
	err := l.fn(ctx, req, res)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
