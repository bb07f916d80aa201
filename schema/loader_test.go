package schema

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/bronystylecrazy/metaroute/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPathSchema = `{
  "version":  {"sequence": 0, "required": false, "default": "v1"},
  "category": {"sequence": 1, "required": true},
  "request":  {"sequence": 2, "required": true},
  "support":  {"sequence": 3, "required": false}
}`

const testUserTable = `{
  "categorySpecificMiddlewares": ["./common->someMiddleware"],
  "getUser": {
    "methods": ["GET", "post"],
    "description": "returns a user",
    "handlers": {"GET": "./handlers->getUser", "post": "./handlers->updateUser"},
    "parameters": {"headers": ["X-Api-Key"], "query": ["id"], "support": ["lang"]},
    "middlewares": {"GET": ["./common->requestId"]}
  },
  "noMethods":   {"description": "x", "handlers": {"GET": "./h->f"}},
  "noDescription": {"methods": ["GET"], "handlers": {"GET": "./h->f"}},
  "noHandlers":  {"methods": ["GET"], "description": "x"},
  "listValued":  ["a", "b"],
  "scalar":      "nothing"
}`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"path-schema.json":        {Data: []byte(testPathSchema)},
		"params-schema.json":      {Data: []byte(`{"support": {"responseSchema": {"required": false, "default": "basic"}, "lang": {"required": true, "default": "en"}}}`)},
		"v1/response-schema.json": {Data: []byte(`{"mobile": {"name": "fullName", "mobile": "phone"}}`)},
		"v1/user/paths.json":      {Data: []byte(testUserTable)},
		"v1/admin/paths.yaml":     {Data: []byte("ping:\n  methods: [GET]\n  description: admin ping\n  handlers:\n    GET: ./handlers->ping\n")},
		"v1/readme.md":            {Data: []byte("ignored")},
	}
}

func TestLoaderLoadsTree(t *testing.T) {
	snap, err := NewLoader(testFS()).Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"v1"}, snap.Versions())
	keys := snap.PathSchema().Keys()
	require.Len(t, keys, 4)
	assert.Equal(t, "version", keys[0].Name)
	assert.True(t, keys[0].HasDefault)
	assert.Equal(t, "v1", keys[0].Default)
	assert.Equal(t, "support", keys[3].Name)

	support := snap.SupportSchema().Keys()
	require.Len(t, support, 2)
	assert.Equal(t, SupportKey{Name: "lang", Required: true, Default: "en"}, support[0])

	vs, ok := snap.Version("v1")
	require.True(t, ok)
	assert.Equal(t, []string{"admin", "user"}, vs.Categories())
	mapping, ok := vs.ResponseSchemas().Lookup("mobile")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"name": "fullName", "mobile": "phone"}, mapping)
}

func TestStoreRoute(t *testing.T) {
	snap, err := NewLoader(testFS()).Load()
	require.NoError(t, err)
	store := NewStaticStore(snap)

	route, err := store.Route("v1", "user", "getUser")
	require.NoError(t, err)
	assert.Equal(t, "v1/user", route.Anchor())
	assert.Equal(t, []string{"GET", "POST"}, route.Methods())
	assert.True(t, route.AllowsMethod("post"))
	assert.False(t, route.AllowsMethod("DELETE"))
	ref, ok := route.Handler("POST")
	assert.True(t, ok)
	assert.Equal(t, "./handlers->updateUser", ref)
	assert.Equal(t, []string{"X-Api-Key"}, route.RequiredHeaders())
	assert.Equal(t, []string{"id"}, route.QueryParams())
	assert.Equal(t, []string{"lang"}, route.SupportParams())
	assert.Equal(t, []string{"./common->requestId"}, route.Middlewares("get"))
	assert.Equal(t, []string{"./common->someMiddleware"}, route.CategoryMiddlewares())

	yamlRoute, err := store.Route("v1", "admin", "ping")
	require.NoError(t, err)
	assert.Equal(t, "admin ping", yamlRoute.Description())
	assert.Equal(t, []string{}, yamlRoute.CategoryMiddlewares())
}

func TestSnapshotMatchesStore(t *testing.T) {
	snap, err := NewLoader(testFS()).Load()
	require.NoError(t, err)
	store := NewStaticStore(snap)

	fromSnap, err := snap.Route("v1", "user", "getUser")
	require.NoError(t, err)
	fromStore, err := store.Route("v1", "user", "getUser")
	require.NoError(t, err)
	assert.Equal(t, fromStore, fromSnap)

	_, err = snap.Route("v2", "user", "getUser")
	assert.Equal(t, 404, fault.StatusOf(err))
	assert.Equal(t, store.ResponseSchemas("v1"), snap.ResponseSchemas("v1"))
	assert.Equal(t, ResponseSchemas{}, snap.ResponseSchemas("v2"))

	vs, _ := snap.Version("v1")
	table, ok := vs.Table("user")
	require.True(t, ok)
	assert.Equal(t, []string{"./common->someMiddleware"}, table.CategoryMiddlewares())
}

func TestStoreRouteAccessorsReturnCopies(t *testing.T) {
	snap, err := NewLoader(testFS()).Load()
	require.NoError(t, err)
	store := NewStaticStore(snap)

	route, err := store.Route("v1", "user", "getUser")
	require.NoError(t, err)
	methods := route.Methods()
	methods[0] = "DELETE"
	route.CategoryMiddlewares()[0] = "mutated"

	again, err := store.Route("v1", "user", "getUser")
	require.NoError(t, err)
	assert.Equal(t, []string{"GET", "POST"}, again.Methods())
	assert.Equal(t, []string{"./common->someMiddleware"}, again.CategoryMiddlewares())
}

func TestStoreRouteErrors(t *testing.T) {
	snap, err := NewLoader(testFS()).Load()
	require.NoError(t, err)
	store := NewStaticStore(snap)

	tests := []struct {
		name     string
		version  string
		category string
		request  string
		status   int
		contains string
	}{
		{name: "unknown category", version: "v1", category: "nope", request: "x", status: 404, contains: "cannot find category 'nope'"},
		{name: "unknown version", version: "v2", category: "user", request: "getUser", status: 404},
		{name: "unknown request", version: "v1", category: "user", request: "missing", status: 400, contains: "not a valid requestName"},
		{name: "shared section", version: "v1", category: "user", request: CategoryMiddlewaresKey, status: 400},
		{name: "list value", version: "v1", category: "user", request: "listValued", status: 400},
		{name: "scalar value", version: "v1", category: "user", request: "scalar", status: 400},
		{name: "missing methods", version: "v1", category: "user", request: "noMethods", status: 500, contains: "'methods'"},
		{name: "missing description", version: "v1", category: "user", request: "noDescription", status: 500, contains: "'description'"},
		{name: "missing handlers", version: "v1", category: "user", request: "noHandlers", status: 500, contains: "'handlers'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Route(tt.version, tt.category, tt.request)
			require.Error(t, err)
			assert.Equal(t, tt.status, fault.StatusOf(err))
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestTableProblemsListsSchemaFailures(t *testing.T) {
	snap, err := NewLoader(testFS()).Load()
	require.NoError(t, err)
	vs, _ := snap.Version("v1")
	table, ok := vs.Table("user")
	require.True(t, ok)
	assert.Equal(t, []string{"getUser"}, table.Names())
	problems := table.Problems()
	assert.Len(t, problems, 3)
	assert.Contains(t, problems, "noHandlers")
}

func TestLoaderRequiresPathSchema(t *testing.T) {
	fsys := testFS()
	delete(fsys, "path-schema.json")
	_, err := NewLoader(fsys).Load()
	assert.Error(t, err)
}

func TestLoaderRejectsPathSchemaWithoutCategory(t *testing.T) {
	fsys := testFS()
	fsys["path-schema.json"] = &fstest.MapFile{Data: []byte(`{"request": {"sequence": 0, "required": true}}`)}
	_, err := NewLoader(fsys).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category")
}

func TestLoaderRejectsMalformedJSON(t *testing.T) {
	fsys := testFS()
	fsys["v1/user/paths.json"] = &fstest.MapFile{Data: []byte(`{"getUser": `)}
	_, err := NewLoader(fsys).Load()
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindSchema))
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	for name, file := range testFS() {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, file.Data, 0o600))
	}
	store, err := NewStore(NewLoader(os.DirFS(dir)), nil)
	require.NoError(t, err)

	w := NewWatcher(store, dir, 50*time.Millisecond, nil)
	require.NoError(t, w.Start(t.Context()))
	defer func() { _ = w.Stop(t.Context()) }()

	table := `{"ping": {"methods": ["GET"], "description": "new", "handlers": {"GET": "./handlers->ping"}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v1", "user", "paths.json"), []byte(table), 0o600))

	select {
	case err := <-w.Reloads():
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	route, err := store.Route("v1", "user", "ping")
	require.NoError(t, err)
	assert.Equal(t, "new", route.Description())
}
