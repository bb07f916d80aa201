// Package response shapes handler payloads into the JSON a client receives.
package response

import (
	"errors"
	"maps"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/bronystylecrazy/metaroute/fault"
	"github.com/bronystylecrazy/metaroute/schema"
	"github.com/bronystylecrazy/metaroute/support"
	"go.uber.org/zap"
)

const (
	MinStatus = 100
	MaxStatus = 599

	DefaultMessage = "default response message."
	statusKey      = "status"
)

// Payload is the JSON object produced by a handler.
type Payload = map[string]any

// Outgoing is what the HTTP collaborator has to provide to write a response.
type Outgoing interface {
	Status(code int)
	JSON(v any) error
	Redirect(url string, code int) error
	SendStatus(code int) error
	Sent() bool
}

type Config struct {
	// RequiredKeys must be present in every payload.
	RequiredKeys []string `mapstructure:"required_keys"`
}

type Options struct {
	Support support.Params
	Schemas schema.ResponseSchemas
	Config  Config
	Logger  *zap.Logger
}

type Context struct {
	out     Outgoing
	support support.Params
	schemas schema.ResponseSchemas
	basic   []string
	logger  *zap.Logger

	mu      sync.Mutex
	status  int
	payload Payload
	sent    bool
}

func New(out Outgoing, opts Options) (*Context, error) {
	if out == nil {
		return nil, errors.New("response: outgoing writer is nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	basic := make([]string, 0, len(opts.Config.RequiredKeys))
	for _, k := range opts.Config.RequiredKeys {
		if k != "" {
			basic = append(basic, k)
		}
	}
	return &Context{
		out:     out,
		support: opts.Support,
		schemas: opts.Schemas,
		basic:   basic,
		logger:  logger,
		status:  http.StatusInternalServerError,
		payload: Payload{"message": DefaultMessage, statusKey: http.StatusInternalServerError},
	}, nil
}

// SetStatus stores code when it is a valid status. Numeric strings and
// integral floats are accepted. An invalid code leaves the previous status.
func (c *Context) SetStatus(code any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setStatus(code)
}

func (c *Context) setStatus(code any) bool {
	n, ok := statusCode(code)
	if !ok {
		return false
	}
	if !validStatus(n) {
		c.logger.Warn("status code is out of range", zap.Int("status", n), zap.Int("min", MinStatus), zap.Int("max", MaxStatus))
		return false
	}
	c.status = n
	return true
}

func (c *Context) Status() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Payload returns a copy of the payload that Send would write.
func (c *Context) Payload() Payload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.payload)
}

// Handling stores payload, reshapes it with the requested response schema and
// checks the required keys unless skipBasic is set. The status is taken from
// payload["status"]. A nil payload is logged and leaves the context as is.
func (c *Context) Handling(payload Payload, skipBasic bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if payload == nil {
		c.logger.Error("handler didn't return anything, skipping response handling")
		return nil
	}
	c.payload = payload
	if mapping, ok := c.requestedSchema(); ok {
		c.payload = c.reshape(payload, mapping)
	}
	if !skipBasic {
		for _, key := range c.basic {
			if _, ok := c.payload[key]; !ok {
				return fault.Validation(http.StatusInternalServerError, "key '%s' must be present in handler's return object. validating response schema fails.", key)
			}
		}
	}
	c.setStatus(c.payload[statusKey])
	return nil
}

// requestedSchema reports the schema named by the responseSchema support
// parameter. An empty schema is still a schema: it reshapes down to the basic
// keys.
func (c *Context) requestedSchema() (map[string]string, bool) {
	names := c.support.Values(support.ResponseSchemaKey)
	if len(names) == 0 || names[0] == "" {
		return nil, false
	}
	if len(names) > 1 {
		c.logger.Warn("client requested multiple response schemas, applying the first", zap.Strings("schemas", names), zap.String("applied", names[0]))
	}
	mapping, ok := c.schemas.Lookup(names[0])
	if !ok {
		c.logger.Warn("response schema not found, payload is sent unchanged", zap.String("schema", names[0]))
		return nil, false
	}
	return mapping, true
}

// reshape builds the client payload: basic keys are copied when truthy, then
// every client key takes the value of its source key or nil.
func (c *Context) reshape(original Payload, mapping map[string]string) Payload {
	out := make(Payload, len(c.basic)+len(mapping))
	for _, key := range c.basic {
		v, ok := original[key]
		if !ok || !truthy(v) {
			c.logger.Warn("cannot add basic key, source value is empty", zap.String("key", key))
			continue
		}
		out[key] = v
	}
	for clientKey, sourceKey := range mapping {
		v := original[sourceKey]
		if !truthy(v) {
			out[clientKey] = nil
			continue
		}
		out[clientKey] = v
	}
	return out
}

// Send writes the status and payload once. Later calls are no-ops.
func (c *Context) Send() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent || c.out.Sent() {
		c.sent = true
		return nil
	}
	c.sent = true
	c.out.Status(c.status)
	return c.out.JSON(c.payload)
}

// SendError writes the {message, status} body of err without reshaping or
// key validation. It is a no-op once the response is sent.
func (c *Context) SendError(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent || c.out.Sent() {
		c.sent = true
		return nil
	}
	c.sent = true
	c.status = fault.StatusOf(err)
	c.payload = fault.Body(err)
	c.out.Status(c.status)
	return c.out.JSON(c.payload)
}

// Redirect is ignored when url is empty or the response is already sent.
// A zero code means 302.
func (c *Context) Redirect(url string, code int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if url == "" || c.sent || c.out.Sent() {
		return nil
	}
	if code == 0 {
		code = http.StatusFound
	}
	c.sent = true
	return c.out.Redirect(url, code)
}

// SendStatus sends an empty response with code, or 500 when code is invalid.
func (c *Context) SendStatus(code any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent || c.out.Sent() {
		return nil
	}
	n, ok := statusCode(code)
	if !ok || !validStatus(n) {
		c.logger.Warn("invalid status code provided, sending 500", zap.Any("status", code))
		n = http.StatusInternalServerError
	}
	c.sent = true
	return c.out.SendStatus(n)
}

func (c *Context) IsSent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent || c.out.Sent()
}

func validStatus(n int) bool {
	return n >= MinStatus && n <= MaxStatus
}

func statusCode(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, n != 0
	case int32:
		return int(n), n != 0
	case int64:
		return int(n), n != 0
	case float64:
		if n == 0 || n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil || i == 0 {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// truthy follows JSON-ish truthiness: nil, false, "", 0 and NaN are empty.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	default:
		return true
	}
}
