package web

import (
	"bytes"
	"encoding/json"
	"maps"
	"net/http"
	"strings"

	"github.com/bronystylecrazy/metaroute/fault"
	"github.com/gofiber/fiber/v3"
)

// Request is a copy of the fiber request taken before dispatch, so the
// pipeline may outlive the handler that created it.
type Request struct {
	path    string
	method  string
	headers map[string][]string
	query   map[string]string
	params  map[string]string
	body    map[string]any
}

// NewRequest copies c. A JSON body must be an object; anything else fails
// with a 400.
func NewRequest(c fiber.Ctx) (*Request, error) {
	r := &Request{
		path:    strings.Clone(c.Path()),
		method:  strings.Clone(c.Method()),
		headers: map[string][]string{},
		query:   map[string]string{},
		params:  map[string]string{},
		body:    map[string]any{},
	}
	for k, values := range c.GetReqHeaders() {
		copied := make([]string, len(values))
		for i, v := range values {
			copied[i] = strings.Clone(v)
		}
		r.headers[strings.Clone(k)] = copied
	}
	for k, v := range c.Queries() {
		r.query[strings.Clone(k)] = strings.Clone(v)
	}
	if wildcard := c.Params("*"); wildcard != "" {
		r.params["*"] = strings.Clone(wildcard)
	}

	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 || !isJSON(c.Get(fiber.HeaderContentType)) {
		return r, nil
	}
	if err := json.Unmarshal(body, &r.body); err != nil {
		return nil, fault.Validation(http.StatusBadRequest, "request body must be a JSON object").Wrap(err)
	}
	if r.body == nil {
		r.body = map[string]any{}
	}
	return r, nil
}

func isJSON(contentType string) bool {
	mediaType, _, _ := strings.Cut(strings.ToLower(contentType), ";")
	mediaType = strings.TrimSpace(mediaType)
	return mediaType == fiber.MIMEApplicationJSON || strings.HasSuffix(mediaType, "+json")
}

func (r *Request) Path() string                 { return r.path }
func (r *Request) Method() string               { return r.method }
func (r *Request) Headers() map[string][]string { return maps.Clone(r.headers) }
func (r *Request) Query() map[string]string     { return maps.Clone(r.query) }
func (r *Request) Body() map[string]any         { return maps.Clone(r.body) }
func (r *Request) Params() map[string]string    { return maps.Clone(r.params) }
