package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/bronystylecrazy/metaroute/fault"
	"github.com/bronystylecrazy/metaroute/middleware"
	"github.com/bronystylecrazy/metaroute/request"
	"github.com/bronystylecrazy/metaroute/response"
	"github.com/bronystylecrazy/metaroute/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const userPaths = `{
  "categorySpecificMiddlewares": ["./common->count"],
  "getUser": {
    "methods": ["GET"],
    "description": "returns a user",
    "handlers": {"GET": "./handlers->getUser"}
  },
  "echo":    {"methods": ["GET"], "description": "x", "handlers": {"GET": "./handlers->echo"}},
  "fail":    {"methods": ["GET"], "description": "x", "handlers": {"GET": "./handlers->fail"}},
  "boom":    {"methods": ["GET"], "description": "x", "handlers": {"GET": "./handlers->boom"}},
  "slow":    {"methods": ["GET"], "description": "x", "handlers": {"GET": "./handlers->slow"}},
  "unbound": {"methods": ["GET"], "description": "x", "handlers": {"GET": "./handlers->nothing"}}
}`

type incoming struct{ path, method string }

func (i incoming) Path() string                 { return i.path }
func (i incoming) Method() string               { return i.method }
func (i incoming) Headers() map[string][]string { return nil }
func (i incoming) Query() map[string]string     { return nil }
func (i incoming) Body() map[string]any         { return nil }
func (i incoming) Params() map[string]string    { return nil }

type recorder struct {
	mu     sync.Mutex
	status int
	body   map[string]any
	writes int
}

func (r *recorder) Status(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writes == 0 {
		r.status = code
	}
}

func (r *recorder) JSON(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writes == 0 {
		r.body, _ = v.(map[string]any)
	}
	r.writes++
	return nil
}

func (r *recorder) Redirect(string, int) error { return r.JSON(nil) }
func (r *recorder) SendStatus(int) error       { return r.JSON(nil) }

func (r *recorder) Sent() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes > 0
}

func (r *recorder) result() (int, map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, r.body
}

type harness struct {
	store       *schema.Store
	handlers    *HandlerRegistry
	middlewares *middleware.Registry
	counter     atomic.Int32
	release     chan struct{}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	snap, err := schema.NewLoader(fstest.MapFS{
		"path-schema.json": {Data: []byte(`{
			"version":  {"sequence": 0, "required": false, "default": "v1"},
			"category": {"sequence": 1, "required": true},
			"request":  {"sequence": 2, "required": true},
			"support":  {"sequence": 3, "required": false}
		}`)},
		"v1/response-schema.json": {Data: []byte(`{"mobile": {"name": "fullName", "mobile": "phone"}}`)},
		"v1/user/paths.json":      {Data: []byte(userPaths)},
	}).Load()
	require.NoError(t, err)

	h := &harness{
		store:       schema.NewStaticStore(snap),
		handlers:    NewHandlerRegistry(),
		middlewares: middleware.NewRegistry(),
		release:     make(chan struct{}),
	}
	t.Cleanup(func() { close(h.release) })

	h.middlewares.MustRegister("middlewares/common", "count", func(context.Context, *request.Context, *response.Context) error {
		h.counter.Add(1)
		return nil
	})
	h.middlewares.MustRegister("middlewares/common", "someMiddleware", func(_ context.Context, req *request.Context, _ *response.Context) error {
		req.SetMiddlewareData("someKey", "someValue")
		return nil
	})

	h.handlers.MustRegister("v1/user/handlers", "getUser", func(context.Context, *request.Context, *response.Context) (response.Payload, error) {
		return response.Payload{"message": "ok", "status": 200, "fullName": "Ada", "phone": "123"}, nil
	})
	h.handlers.MustRegister("v1/user/handlers", "echo", func(_ context.Context, req *request.Context, _ *response.Context) (response.Payload, error) {
		v, _ := req.MiddlewareData("someKey")
		return response.Payload{"message": "ok", "status": 200, "someKey": v}, nil
	})
	h.handlers.MustRegister("v1/user/handlers", "fail", func(context.Context, *request.Context, *response.Context) (response.Payload, error) {
		return nil, fault.Validation(422, "bad input")
	})
	h.handlers.MustRegister("v1/user/handlers", "boom", func(context.Context, *request.Context, *response.Context) (response.Payload, error) {
		panic("boom")
	})
	h.handlers.MustRegister("v1/user/handlers", "slow", func(context.Context, *request.Context, *response.Context) (response.Payload, error) {
		<-h.release
		return response.Payload{"message": "late", "status": 200}, nil
	})
	return h
}

func (h *harness) dispatcher(t *testing.T, opts Options) *Dispatcher {
	t.Helper()
	if opts.Config.DefaultVersion == "" {
		opts.Config = DefaultConfig()
	}
	if opts.Metadata == nil {
		opts.Metadata = h.store
	}
	opts.Registry = h.middlewares
	opts.Middlewares = middleware.Config{AllRequests: []string{"./common->someMiddleware", "./common->missing"}}
	if opts.Stacks == nil {
		opts.Stacks = []Stack{NewStack("v1", StackOptions{
			Handlers: h.handlers,
			Response: response.Config{RequiredKeys: []string{"message", "status"}},
			Logger:   opts.Logger,
			Tracer:   opts.Tracer,
		})}
	}
	d, err := New(opts)
	require.NoError(t, err)
	return d
}

func serve(d *Dispatcher, method, path string) (int, map[string]any) {
	out := &recorder{}
	d.Serve(context.Background(), incoming{path: path, method: method}, out)
	return out.result()
}

func TestServeReshapesPayload(t *testing.T) {
	h := newHarness(t)
	status, body := serve(h.dispatcher(t, Options{}), "GET", "/v1/user/getUser/~responseSchema=mobile")
	assert.Equal(t, 200, status)
	assert.Equal(t, map[string]any{"message": "ok", "status": 200, "name": "Ada", "mobile": "123"}, body)
	assert.Equal(t, int32(1), h.counter.Load())
}

func TestServeGlobalMiddlewareData(t *testing.T) {
	h := newHarness(t)
	status, body := serve(h.dispatcher(t, Options{}), "GET", "/v1/user/echo")
	assert.Equal(t, 200, status)
	assert.Equal(t, "someValue", body["someKey"])
}

func TestServeUnknownVersionFallsBack(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	h := newHarness(t)
	d := h.dispatcher(t, Options{Logger: zap.New(core)})

	status, _ := serve(d, "GET", "/v9/user/getUser")
	assert.Equal(t, 200, status)

	warnings := logs.FilterMessage("unsupported api version, using default version").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "v9", warnings[0].ContextMap()["requested"])
	assert.Equal(t, "v1", warnings[0].ContextMap()["version"])
}

func TestSelectVersion(t *testing.T) {
	h := newHarness(t)
	d := h.dispatcher(t, Options{})
	tests := []struct {
		path string
		want string
	}{
		{path: "/v1/user/getUser", want: "v1"},
		{path: "/V1/user/getUser", want: "v1"},
		{path: "/default/user/getUser", want: "v1"},
		{path: "/v2/user/getUser", want: "v1"},
		{path: "", want: "v1"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, d.SelectVersion(tt.path))
		})
	}
}

func TestServeDisallowedMethodSkipsMiddlewares(t *testing.T) {
	h := newHarness(t)
	status, body := serve(h.dispatcher(t, Options{}), "PUT", "/v1/user/getUser")
	assert.Equal(t, 400, status)
	assert.Equal(t, map[string]any{"message": "PUT is not allowed for current endpoint.", "status": 400}, body)
	assert.Equal(t, int32(0), h.counter.Load())
}

func TestServeErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		msg    string
	}{
		{name: "unknown category", path: "/v1/nothing/getUser", status: 404, msg: "cannot find category 'nothing', importing path metadata fails"},
		{name: "unknown request", path: "/v1/user/nope", status: 400, msg: "'/nope' is not a valid requestName for given category user"},
		{name: "handler error", path: "/v1/user/fail", status: 422, msg: "bad input"},
		{name: "panic", path: "/v1/user/boom", status: 500, msg: fault.DefaultMessage},
		{name: "unregistered handler", path: "/v1/user/unbound", status: 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			status, body := serve(h.dispatcher(t, Options{}), "GET", tt.path)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.status, body["status"])
			if tt.msg != "" {
				assert.Equal(t, tt.msg, body["message"])
			}
		})
	}
}

func TestServeTimeout(t *testing.T) {
	h := newHarness(t)
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	d := h.dispatcher(t, Options{Config: cfg})

	status, body := serve(d, "GET", "/v1/user/slow")
	assert.Equal(t, 504, status)
	assert.Equal(t, 504, body["status"])
}

func TestServeSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	h := newHarness(t)
	d := h.dispatcher(t, Options{Tracer: tp.Tracer("test")})

	serve(d, "GET", "/v1/user/getUser")

	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"middleware", "middleware", "handler", "dispatch"}, names)
}

func TestServeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)
	h := newHarness(t)
	d := h.dispatcher(t, Options{Metrics: metrics})

	serve(d, "GET", "/v1/user/getUser")
	serve(d, "GET", "/v7/user/getUser")
	serve(d, "PUT", "/v1/user/getUser")

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.requests.WithLabelValues("v1", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("v1", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.fallbacks))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.skips))
}

func TestNewRejectsMissingDefault(t *testing.T) {
	h := newHarness(t)
	cfg := DefaultConfig()
	cfg.DefaultVersion = "v2"
	_, err := New(Options{Config: cfg, Metadata: h.store, Stacks: []Stack{NewStack("v1", StackOptions{})}})
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Versions = []string{"v1", "v3"}
	_, err = New(Options{Config: cfg, Metadata: h.store, Stacks: []Stack{NewStack("v1", StackOptions{})}})
	assert.Error(t, err)
}

// reloadAfterRead hands out current and then swaps in next, as a metadata
// reload landing right after a read would.
type reloadAfterRead struct {
	mu      sync.Mutex
	current *schema.Snapshot
	next    *schema.Snapshot
	reads   int
}

func (r *reloadAfterRead) Snapshot() *schema.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	snap := r.current
	r.current = r.next
	return snap
}

func TestServeUsesOneSnapshotPerRequest(t *testing.T) {
	h := newHarness(t)
	swapped, err := schema.NewLoader(fstest.MapFS{
		"path-schema.json": {Data: []byte(`{
			"version":  {"sequence": 0, "required": false, "default": "v1"},
			"request":  {"sequence": 1, "required": true},
			"category": {"sequence": 2, "required": true}
		}`)},
		"v1/getUser/paths.json": {Data: []byte(`{
			"user": {"methods": ["GET"], "description": "x", "handlers": {"GET": "./handlers->getUser"}}
		}`)},
	}).Load()
	require.NoError(t, err)

	meta := &reloadAfterRead{current: h.store.Snapshot(), next: swapped}
	d := h.dispatcher(t, Options{Metadata: meta})

	status, body := serve(d, "GET", "/v1/user/getUser/~responseSchema=mobile")
	assert.Equal(t, 200, status)
	assert.Equal(t, "Ada", body["name"])
	assert.Equal(t, 1, meta.reads)
}
