// Package request wraps an incoming framework request, parses its path and
// support variables and validates it against route metadata.
package request

import (
	"maps"
	"strings"
	"sync"

	"github.com/bronystylecrazy/metaroute/fault"
	"github.com/bronystylecrazy/metaroute/pathvar"
	"github.com/bronystylecrazy/metaroute/schema"
	"github.com/bronystylecrazy/metaroute/support"
)

// Incoming is what the HTTP collaborator has to provide.
type Incoming interface {
	Path() string
	Method() string
	Headers() map[string][]string
	Query() map[string]string
	Body() map[string]any
	Params() map[string]string
}

type RouteSource interface {
	Route(version, category, request string) (schema.Route, error)
}

// Options binds a Context to one API version.
type Options struct {
	Version       string
	PathSchema    schema.PathSchema
	SupportSchema schema.SupportSchema
	Routes        RouteSource
}

type Context struct {
	in         Incoming
	version    string
	vars       pathvar.Vars
	support    support.Params
	route      schema.Route
	handlerRef string

	mu     sync.RWMutex
	mwData map[string]any
}

// New parses and validates in. Validation stops at the first failure:
//  1. path variables, category and request name
//  2. route metadata
//  3. allowed method
//  4. handler binding for the method
//  5. required headers
func New(in Incoming, opts Options) (*Context, error) {
	method := strings.ToUpper(in.Method())
	vars, err := pathvar.Resolve(opts.PathSchema, in.Path(), method)
	if err != nil {
		return nil, err
	}
	category, ok := vars.Get(schema.KeyCategory)
	if !ok {
		return nil, fault.Validation(400, "no 'category' field in path variables, make sure 'category' is defined in the path schema")
	}
	requestName, ok := vars.Get(schema.KeyRequest)
	if !ok {
		return nil, fault.Validation(400, "no 'request' field in path variables, make sure 'request' is defined in the path schema")
	}

	route, err := opts.Routes.Route(opts.Version, category, requestName)
	if err != nil {
		return nil, err
	}
	if !route.AllowsMethod(method) {
		return nil, fault.Validation(400, "%s is not allowed for current endpoint.", method)
	}
	handlerRef, ok := route.Handler(method)
	if !ok {
		return nil, fault.Validation(400, "no handler defined for %s for current endpoint.", method)
	}
	if err := validateHeaders(route.RequiredHeaders(), in.Headers()); err != nil {
		return nil, err
	}

	return &Context{
		in:         in,
		version:    opts.Version,
		vars:       vars,
		support:    support.Parse(vars.Support(), opts.SupportSchema),
		route:      route,
		handlerRef: handlerRef,
		mwData:     map[string]any{},
	}, nil
}

func validateHeaders(required []string, headers map[string][]string) error {
	if len(required) == 0 {
		return nil
	}
	present := make(map[string]struct{}, len(headers))
	for name := range headers {
		present[strings.ToLower(name)] = struct{}{}
	}
	var missing []string
	for _, name := range required {
		if _, ok := present[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fault.Validation(400, "required keys for headers are [%s]. cannot find [%s] in provided headers. request validation fails.",
			strings.Join(required, ","), strings.Join(missing, ","))
	}
	return nil
}

func (c *Context) Version() string               { return c.version }
func (c *Context) Category() string              { return c.vars.Category() }
func (c *Context) RequestName() string           { return c.vars.Request() }
func (c *Context) PathVars() pathvar.Vars        { return c.vars }
func (c *Context) SupportParams() support.Params { return c.support }
func (c *Context) Route() schema.Route           { return c.route }

// HandlerRef is the raw function reference bound to the request method.
func (c *Context) HandlerRef() string { return c.handlerRef }

func (c *Context) Path() string {
	return c.in.Path()
}

func (c *Context) SplitPath() []string {
	return pathvar.Split(c.in.Path())
}

func (c *Context) Method() string {
	return strings.ToUpper(c.in.Method())
}

func (c *Context) Body() map[string]any {
	return c.in.Body()
}

func (c *Context) Query() map[string]string {
	return c.in.Query()
}

func (c *Context) Params() map[string]string {
	return c.in.Params()
}

func (c *Context) Headers() map[string][]string {
	return maps.Clone(c.in.Headers())
}

// Header returns the first value of name, matched case-insensitively.
func (c *Context) Header(name string) string {
	for k, v := range c.in.Headers() {
		if strings.EqualFold(k, name) {
			if len(v) > 0 {
				return v[0]
			}
		}
	}
	return ""
}

// MiddlewareData returns the value a middleware stored under key.
func (c *Context) MiddlewareData(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.mwData[key]
	return v, ok
}

// SetMiddlewareData stores value under key. An empty key is rejected.
func (c *Context) SetMiddlewareData(key string, value any) bool {
	if key == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mwData[key] = value
	return true
}

func (c *Context) AllMiddlewareData() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.mwData)
}
