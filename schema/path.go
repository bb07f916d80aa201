package schema

import (
	"fmt"
	"sort"
)

const (
	KeyVersion    = "version"
	KeyCategory   = "category"
	KeyRequest    = "request"
	KeySupport    = "support"
	KeyHTTPMethod = "httpMethod"
)

// PathKey describes where one named variable sits in the slash separated
// request path.
type PathKey struct {
	Name       string
	Sequence   int
	Required   bool
	Default    string
	HasDefault bool
}

type pathKeyRecord struct {
	Sequence int     `mapstructure:"sequence"`
	Required bool    `mapstructure:"required"`
	Default  *string `mapstructure:"default"`
}

// PathSchema is ordered by (Sequence, Name).
type PathSchema struct {
	keys []PathKey
}

func NewPathSchema(keys ...PathKey) (PathSchema, error) {
	out := make([]PathKey, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k.Name == "" {
			return PathSchema{}, fmt.Errorf("path schema key without name")
		}
		if k.Sequence < 0 {
			return PathSchema{}, fmt.Errorf("path schema key %q has negative sequence %d", k.Name, k.Sequence)
		}
		if _, dup := seen[k.Name]; dup {
			return PathSchema{}, fmt.Errorf("path schema key %q declared twice", k.Name)
		}
		seen[k.Name] = struct{}{}
		out = append(out, k)
	}
	for _, required := range []string{KeyCategory, KeyRequest} {
		if _, ok := seen[required]; !ok {
			return PathSchema{}, fmt.Errorf("path schema must declare %q", required)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].Name < out[j].Name
	})
	return PathSchema{keys: out}, nil
}

func MustPathSchema(keys ...PathKey) PathSchema {
	s, err := NewPathSchema(keys...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s PathSchema) Keys() []PathKey {
	return append([]PathKey(nil), s.keys...)
}

func (s PathSchema) Key(name string) (PathKey, bool) {
	for _, k := range s.keys {
		if k.Name == name {
			return k, true
		}
	}
	return PathKey{}, false
}

func decodePathSchema(raw map[string]any) (PathSchema, error) {
	records := map[string]pathKeyRecord{}
	if err := decodeInto(raw, &records); err != nil {
		return PathSchema{}, err
	}
	keys := make([]PathKey, 0, len(records))
	for name, rec := range records {
		k := PathKey{Name: name, Sequence: rec.Sequence, Required: rec.Required}
		if rec.Default != nil {
			k.Default = *rec.Default
			k.HasDefault = true
		}
		keys = append(keys, k)
	}
	return NewPathSchema(keys...)
}
