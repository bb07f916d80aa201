// Package cfg loads config.toml once and decodes named sections of it into
// typed structs for fx.
package cfg

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

const DefaultFile = "config.toml"

type Options struct {
	// Path of the config file. Empty means DefaultFile.
	Path string
	// Type overrides the type derived from the file extension.
	Type      string
	EnvPrefix string
	// Optional tolerates a missing file; sections then keep their defaults.
	Optional bool
}

var validate = validator.New()

func Module(opts Options) fx.Option {
	return fx.Module("metaroute/cfg",
		fx.Provide(func() (*viper.Viper, error) { return Load(opts) }),
	)
}

// Section provides T decoded from key, starting from defaults.
func Section[T any](key string, defaults T) fx.Option {
	return fx.Provide(func(v *viper.Viper) (T, error) {
		return Decode(v, key, defaults)
	})
}

// Load reads the config file. Environment variables override keys with "."
// and "-" replaced by "_", so router.default_version is ROUTER_DEFAULT_VERSION.
func Load(opts Options) (*viper.Viper, error) {
	path := opts.Path
	if path == "" {
		path = DefaultFile
	}
	v := viper.New()
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(path)
	if opts.Type != "" {
		v.SetConfigType(opts.Type)
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if opts.Optional && (errors.As(err, &nf) || errors.Is(err, os.ErrNotExist)) {
			return v, nil
		}
		if cleaned, ok := sanitize(path); ok {
			if opts.Type == "" {
				if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
					v.SetConfigType(ext)
				}
			}
			if rerr := v.ReadConfig(bytes.NewReader(cleaned)); rerr == nil {
				return v, nil
			}
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return v, nil
}

// sanitize strips byte order marks and zero width spaces that editors leave
// behind and that the toml parser rejects.
func sanitize(path string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	changed := false
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if i+2 < len(data) && data[i] == 0xEF && data[i+1] == 0xBB && data[i+2] == 0xBF {
			i += 2
			changed = true
			continue
		}
		if i+2 < len(data) && data[i] == 0xE2 && data[i+1] == 0x80 && data[i+2] == 0x8B {
			i += 2
			changed = true
			continue
		}
		out = append(out, data[i])
	}
	if changed {
		return out, true
	}
	return nil, false
}

// Decode decodes key on top of defaults. Keys absent from the file keep their
// default; lists in the file replace the default list. Every field of defaults is registered with viper first, so
// environment variables override it even when the file does not mention it.
// Struct results are checked with their validate tags.
func Decode[T any](v *viper.Viper, key string, defaults T) (T, error) {
	var out T
	var flat map[string]any
	if err := mapstructure.Decode(defaults, &flat); err == nil && flat != nil {
		setDefaults(v, key, flat)
	} else if key != "" {
		v.SetDefault(key, defaults)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(lookup(v.AllSettings(), key)); err != nil {
		return out, fmt.Errorf("decode config %q: %w", key, err)
	}
	if t := reflect.TypeOf(out); t != nil && t.Kind() == reflect.Struct {
		if err := validate.Struct(out); err != nil {
			return out, fmt.Errorf("invalid config %q: %w", key, err)
		}
	}
	return out, nil
}

func setDefaults(v *viper.Viper, prefix string, values map[string]any) {
	for k, val := range values {
		full := k
		if prefix != "" {
			full = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			setDefaults(v, full, nested)
			continue
		}
		v.SetDefault(full, val)
	}
}

func lookup(settings map[string]any, key string) any {
	if key == "" {
		return settings
	}
	var cur any = settings
	for _, part := range strings.Split(strings.ToLower(key), ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}
