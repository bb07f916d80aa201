package user

import (
	"context"
	"net/http"
	"testing"
	"testing/fstest"

	"github.com/alicebob/miniredis/v2"
	"github.com/bronystylecrazy/metaroute/caching/rd"
	"github.com/bronystylecrazy/metaroute/dispatch"
	"github.com/bronystylecrazy/metaroute/fault"
	"github.com/bronystylecrazy/metaroute/funcref"
	"github.com/bronystylecrazy/metaroute/request"
	"github.com/bronystylecrazy/metaroute/schema"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type incoming struct {
	path, method string
	query        map[string]string
	body         map[string]any
}

func (i incoming) Path() string                 { return i.path }
func (i incoming) Method() string               { return i.method }
func (i incoming) Headers() map[string][]string { return nil }
func (i incoming) Query() map[string]string     { return i.query }
func (i incoming) Body() map[string]any         { return i.body }
func (i incoming) Params() map[string]string    { return nil }

const paths = `{
  "getUser":    {"methods": ["GET"], "description": "x", "handlers": {"GET": "./handlers->getUser"}},
  "saveUser":   {"methods": ["POST"], "description": "x", "handlers": {"POST": "./handlers->saveUser"}},
  "deleteUser": {"methods": ["DELETE"], "description": "x", "handlers": {"DELETE": "./handlers->deleteUser"}}
}`

func newHandlers(t *testing.T) *Handlers {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, rd.Config{KeyPrefix: "test:"}, nil)
}

func newRequest(t *testing.T, method, name string, query map[string]string, body map[string]any) *request.Context {
	t.Helper()
	snap, err := schema.NewLoader(fstest.MapFS{
		"path-schema.json": {Data: []byte(`{
			"version":  {"sequence": 0, "default": "v1"},
			"category": {"sequence": 1, "required": true},
			"request":  {"sequence": 2, "required": true}
		}`)},
		"v1/user/paths.json": {Data: []byte(paths)},
	}).Load()
	require.NoError(t, err)
	store := schema.NewStaticStore(snap)
	req, err := request.New(incoming{path: "/v1/user/" + name, method: method, query: query, body: body}, request.Options{
		Version:    "v1",
		PathSchema: store.PathSchema(),
		Routes:     store,
	})
	require.NoError(t, err)
	return req
}

func TestSaveThenGetUser(t *testing.T) {
	h := newHandlers(t)
	ctx := context.Background()

	saved, err := h.SaveUser(ctx, newRequest(t, "POST", "saveUser", nil, map[string]any{
		"fullName": "Ada Lovelace",
		"phone":    "+44123",
	}), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, saved["status"])
	id, _ := saved["id"].(string)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	got, err := h.GetUser(ctx, newRequest(t, "GET", "getUser", map[string]string{"id": id}, nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got["fullName"])
	assert.Equal(t, "+44123", got["phone"])
	assert.Equal(t, http.StatusOK, got["status"])

	replaced, err := h.SaveUser(ctx, newRequest(t, "POST", "saveUser", nil, map[string]any{
		"id":       id,
		"fullName": "Ada King",
		"phone":    "+44123",
	}), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, replaced["status"])
}

func TestSaveUserValidation(t *testing.T) {
	h := newHandlers(t)
	cases := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"missing name", map[string]any{"phone": "1"}, http.StatusUnprocessableEntity},
		{"bad email", map[string]any{"fullName": "a", "phone": "1", "email": "nope"}, http.StatusUnprocessableEntity},
		{"wrong type", map[string]any{"fullName": 12, "phone": "1"}, http.StatusBadRequest},
		{"bad id", map[string]any{"id": "x", "fullName": "a", "phone": "1"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.SaveUser(context.Background(), newRequest(t, "POST", "saveUser", nil, tc.body), nil)
			require.Error(t, err)
			assert.Equal(t, tc.status, fault.StatusOf(err))
		})
	}
}

func TestGetUserErrors(t *testing.T) {
	h := newHandlers(t)
	_, err := h.GetUser(context.Background(), newRequest(t, "GET", "getUser", nil, nil), nil)
	assert.Equal(t, http.StatusBadRequest, fault.StatusOf(err))

	_, err = h.GetUser(context.Background(), newRequest(t, "GET", "getUser", map[string]string{"id": uuid.NewString()}, nil), nil)
	assert.True(t, fault.Is(err, fault.KindNotFound))
}

func TestDeleteUser(t *testing.T) {
	h := newHandlers(t)
	ctx := context.Background()
	saved, err := h.SaveUser(ctx, newRequest(t, "POST", "saveUser", nil, map[string]any{"fullName": "a", "phone": "1"}), nil)
	require.NoError(t, err)
	query := map[string]string{"id": saved["id"].(string)}

	out, err := h.DeleteUser(ctx, newRequest(t, "DELETE", "deleteUser", query, nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "user deleted", out["message"])

	_, err = h.DeleteUser(ctx, newRequest(t, "DELETE", "deleteUser", query, nil), nil)
	assert.Equal(t, http.StatusNotFound, fault.StatusOf(err))
}

func TestRegister(t *testing.T) {
	h := newHandlers(t)
	reg := dispatch.NewHandlerRegistry()
	require.NoError(t, h.Register(reg))
	for _, name := range []string{"getUser", "saveUser", "deleteUser"} {
		ref, err := funcref.Resolve("v1/user", "./handlers->"+name)
		require.NoError(t, err)
		entry, err := reg.Lookup(ref)
		require.NoError(t, err)
		assert.NotNil(t, entry.Fn)
	}
}

