package dispatch

import (
	"context"
	"net/http"

	"github.com/bronystylecrazy/metaroute/fault"
	"github.com/bronystylecrazy/metaroute/funcref"
	"github.com/bronystylecrazy/metaroute/request"
	"github.com/bronystylecrazy/metaroute/response"
)

// HandlerFunc serves one request name. The returned payload goes through
// response.Context.Handling before it is sent.
type HandlerFunc func(ctx context.Context, req *request.Context, res *response.Context) (response.Payload, error)

type HandlerRegistry = funcref.Registry[HandlerFunc]

func NewHandlerRegistry() *HandlerRegistry {
	return funcref.NewRegistry[HandlerFunc]()
}

// ResolveHandler finds the handler bound to the request method. The reference
// is relative to the category directory of the route.
func ResolveHandler(registry *HandlerRegistry, req *request.Context) (HandlerFunc, error) {
	raw := req.HandlerRef()
	ref, err := funcref.Resolve(req.Route().Anchor(), raw)
	if err != nil {
		return nil, fault.Validation(http.StatusInternalServerError, "invalid handler reference %q for %s, importing handler fails", raw, req.Method()).Wrap(err)
	}
	entry, err := registry.Lookup(ref)
	if err != nil {
		return nil, fault.Validation(http.StatusInternalServerError, "%v, importing handler fails", err).Wrap(err)
	}
	return entry.Fn, nil
}
