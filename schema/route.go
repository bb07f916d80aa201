package schema

import (
	"errors"
	"maps"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/bronystylecrazy/metaroute/fault"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// CategoryMiddlewaresKey is the shared section of a route table. Its value is
// a list and is never treated as a route record.
const CategoryMiddlewaresKey = "categorySpecificMiddlewares"

type routeRecord struct {
	Methods     []string            `mapstructure:"methods" validate:"required"`
	Description string              `mapstructure:"description" validate:"required"`
	Handlers    map[string]string   `mapstructure:"handlers" validate:"required"`
	Parameters  parametersRecord    `mapstructure:"parameters"`
	Middlewares map[string][]string `mapstructure:"middlewares"`
}

type parametersRecord struct {
	Headers []string `mapstructure:"headers"`
	Query   []string `mapstructure:"query"`
	Support []string `mapstructure:"support"`
}

// Route is the immutable metadata of one request name. Accessors return
// copies.
type Route struct {
	category            string
	name                string
	anchor              string
	description         string
	methods             []string
	handlers            map[string]string
	headers             []string
	query               []string
	support             []string
	middlewares         map[string][]string
	categoryMiddlewares []string
}

func (r Route) Category() string    { return r.category }
func (r Route) Name() string        { return r.name }
func (r Route) Description() string { return r.description }

// Anchor is the directory, relative to the metadata root, that handler
// references of this route resolve against.
func (r Route) Anchor() string { return r.anchor }

func (r Route) Methods() []string { return slices.Clone(r.methods) }

func (r Route) AllowsMethod(method string) bool {
	return slices.Contains(r.methods, strings.ToUpper(method))
}

// Handler returns the raw function reference bound to method.
func (r Route) Handler(method string) (string, bool) {
	ref, ok := r.handlers[strings.ToUpper(method)]
	return ref, ok
}

func (r Route) Handlers() map[string]string { return maps.Clone(r.handlers) }

func (r Route) RequiredHeaders() []string { return slices.Clone(r.headers) }

// QueryParams and SupportParams are the documented query and support keys of
// the route. They are informational and not enforced per request.
func (r Route) QueryParams() []string { return slices.Clone(r.query) }
func (r Route) SupportParams() []string { return slices.Clone(r.support) }

// Middlewares returns the path specific middleware references for method.
func (r Route) Middlewares(method string) []string {
	return slices.Clone(r.middlewares[strings.ToUpper(method)])
}

func (r Route) CategoryMiddlewares() []string { return slices.Clone(r.categoryMiddlewares) }

// RouteTable is the decoded content of one category's paths file.
type RouteTable struct {
	version             string
	category            string
	anchor              string
	routes              map[string]Route
	rejected            map[string]error
	categoryMiddlewares []string
}

func (t *RouteTable) Category() string { return t.category }
func (t *RouteTable) Anchor() string   { return t.anchor }

// CategoryMiddlewares is the shared middleware list of the table, present
// even when no record of the table decoded.
func (t *RouteTable) CategoryMiddlewares() []string { return slices.Clone(t.categoryMiddlewares) }

// Names lists the request names that decoded into valid routes.
func (t *RouteTable) Names() []string {
	names := make([]string, 0, len(t.routes))
	for name := range t.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Problems lists the schema failures found while decoding, keyed by request
// name.
func (t *RouteTable) Problems() map[string]error {
	return maps.Clone(t.rejected)
}

// Route resolves name inside the table.
func (t *RouteTable) Route(name string) (Route, error) {
	if route, ok := t.routes[name]; ok {
		return route, nil
	}
	if err, ok := t.rejected[name]; ok {
		return Route{}, err
	}
	return Route{}, fault.Validation(400, "'/%s' is not a valid requestName for given category %s", name, t.category)
}

func decodeRouteTable(version, category string, raw map[string]any) (*RouteTable, error) {
	table := &RouteTable{
		version:  version,
		category: category,
		anchor:   version + "/" + category,
		routes:   map[string]Route{},
		rejected: map[string]error{},
	}
	if shared, ok := raw[CategoryMiddlewaresKey]; ok && shared != nil {
		if err := decodeInto(shared, &table.categoryMiddlewares); err != nil {
			return nil, fault.Schema("%s in category %q must be a list of function references", CategoryMiddlewaresKey, category).Wrap(err)
		}
	}
	for name, value := range raw {
		if name == CategoryMiddlewaresKey {
			continue
		}
		obj, ok := value.(map[string]any)
		if !ok {
			// arrays and scalars are never route records
			continue
		}
		route, err := decodeRoute(table, name, obj)
		if err != nil {
			table.rejected[name] = err
			continue
		}
		table.routes[name] = route
	}
	return table, nil
}

func decodeRoute(table *RouteTable, name string, obj map[string]any) (Route, error) {
	var rec routeRecord
	if err := decodeInto(obj, &rec); err != nil {
		return Route{}, fault.Schema("request schema for request '%s' cannot be decoded, parsing path metadata fails", name).Wrap(err)
	}
	if err := validate.Struct(rec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Route{}, fault.Schema("request schema for request '%s' does not have required property '%s', parsing path metadata fails", name, verrs[0].Field()).Wrap(err)
		}
		return Route{}, fault.Schema("request schema for request '%s' is invalid", name).Wrap(err)
	}
	route := Route{
		category:            table.category,
		name:                name,
		anchor:              table.anchor,
		description:         rec.Description,
		methods:             make([]string, 0, len(rec.Methods)),
		handlers:            make(map[string]string, len(rec.Handlers)),
		headers:             slices.Clone(rec.Parameters.Headers),
		query:               slices.Clone(rec.Parameters.Query),
		support:             slices.Clone(rec.Parameters.Support),
		middlewares:         make(map[string][]string, len(rec.Middlewares)),
		categoryMiddlewares: slices.Clone(table.categoryMiddlewares),
	}
	if route.categoryMiddlewares == nil {
		route.categoryMiddlewares = []string{}
	}
	for _, m := range rec.Methods {
		route.methods = append(route.methods, strings.ToUpper(m))
	}
	for verb, ref := range rec.Handlers {
		route.handlers[strings.ToUpper(verb)] = ref
	}
	for verb, refs := range rec.Middlewares {
		route.middlewares[strings.ToUpper(verb)] = slices.Clone(refs)
	}
	return route, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func decodeInto(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
