package cfg

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

type routerConfig struct {
	DefaultVersion string        `mapstructure:"default_version" validate:"required"`
	Versions       []string      `mapstructure:"versions"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Watch          bool          `mapstructure:"watch"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestDecodeReadsFromToml(t *testing.T) {
	path := writeConfig(t, "[router]\ndefault_version = \"v2\"\nversions = [\"v2\"]\ntimeout = \"250ms\"\n")
	v, err := Load(Options{Path: path})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	got, err := Decode(v, "router", routerConfig{DefaultVersion: "v1", Versions: []string{"v1", "v2"}, Watch: true})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	want := routerConfig{DefaultVersion: "v2", Versions: []string{"v2"}, Timeout: 250 * time.Millisecond, Watch: true}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("config mismatch: got=%+v want=%+v", got, want)
	}
}

func TestDecodeEnvOverridesDefaults(t *testing.T) {
	t.Setenv("ROUTER_DEFAULT_VERSION", "v3")
	t.Setenv("ROUTER_WATCH", "true")
	t.Setenv("ROUTER_VERSIONS", "v1,v3")

	v, err := Load(Options{Path: filepath.Join(t.TempDir(), "missing.toml"), Optional: true})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	got, err := Decode(v, "router", routerConfig{DefaultVersion: "v1"})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.DefaultVersion != "v3" {
		t.Fatalf("default version mismatch: got=%q want=%q", got.DefaultVersion, "v3")
	}
	if !got.Watch {
		t.Fatal("expected watch from env to be true")
	}
	if !reflect.DeepEqual(got.Versions, []string{"v1", "v3"}) {
		t.Fatalf("versions mismatch: got=%v", got.Versions)
	}
}

func TestDecodeValidates(t *testing.T) {
	path := writeConfig(t, "[router]\ndefault_version = \"\"\n")
	v, err := Load(Options{Path: path})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if _, err := Decode(v, "router", routerConfig{DefaultVersion: "v1"}); err == nil {
		t.Fatal("expected validation error for empty default_version")
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	if _, err := Load(Options{Path: path}); err == nil {
		t.Fatal("expected error for missing required config file")
	}
	if _, err := Load(Options{Path: path, Optional: true}); err != nil {
		t.Fatalf("optional load failed: %v", err)
	}
}

func TestLoadStripsByteOrderMark(t *testing.T) {
	path := writeConfig(t, "\xEF\xBB\xBF[log]\nlevel = \"warn\"\n")
	v, err := Load(Options{Path: path})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := v.GetString("log.level"); got != "warn" {
		t.Fatalf("level mismatch: got=%q want=%q", got, "warn")
	}
}

func TestDecodeNestedKey(t *testing.T) {
	type redisConfig struct {
		Addr     string `mapstructure:"addr"`
		InMemory bool   `mapstructure:"in_memory"`
	}
	path := writeConfig(t, "[caching.redis]\nin_memory = true\n")
	v, err := Load(Options{Path: path})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	got, err := Decode(v, "caching.redis", redisConfig{Addr: "127.0.0.1:6379"})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Addr != "127.0.0.1:6379" || !got.InMemory {
		t.Fatalf("config mismatch: got=%+v", got)
	}
}
