package metaroute

import (
	"path/filepath"
	"testing"

	"github.com/bronystylecrazy/metaroute/cfg"
	"github.com/bronystylecrazy/metaroute/dispatch"
	"github.com/bronystylecrazy/metaroute/funcref"
	"github.com/bronystylecrazy/metaroute/middleware"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func testConfig(t *testing.T) cfg.Options {
	t.Helper()
	return cfg.Options{Path: filepath.Join(t.TempDir(), "missing.toml"), Optional: true}
}

func TestBuildValidates(t *testing.T) {
	if err := fx.ValidateApp(New(testConfig(t)).Build()); err != nil {
		t.Fatalf("validate app: %v", err)
	}
}

func TestBuildProvidesDispatcher(t *testing.T) {
	var (
		d   *dispatch.Dispatcher
		reg *middleware.Registry
	)
	app := fxtest.New(t, New(testConfig(t), fx.Populate(&d, &reg)).Build())
	if err := app.Err(); err != nil {
		t.Fatalf("build app: %v", err)
	}
	if d == nil {
		t.Fatal("expected dispatcher")
	}
	if got := d.Versions(); len(got) != 1 || got[0] != "v1" {
		t.Fatalf("versions mismatch: %v", got)
	}
	if _, err := reg.Lookup(funcref.Ref{File: "middlewares/common", Func: "requestId"}); err != nil {
		t.Fatalf("expected common middlewares to be registered: %v", err)
	}
}
