// Package support parses the support parameter segment of a request path:
//
//	~key1=v1,v2~key2=v3
package support

import (
	"slices"
	"sort"
	"strings"

	"github.com/bronystylecrazy/metaroute/schema"
)

const (
	fragmentSeparator = "~"
	valueSeparator    = ","
	DefaultToken      = "default"

	// ResponseSchemaKey selects a named response schema.
	ResponseSchemaKey = "responseSchema"
)

// Params is an immutable key -> values mapping.
type Params struct {
	values map[string][]string
}

// Parse decodes raw and injects defaults from s: a key that s marks as
// required and that raw does not carry, or whose only parsed value is the
// literal "default", becomes [default]. Unknown keys are kept verbatim.
func Parse(raw string, s schema.SupportSchema) Params {
	values := map[string][]string{}
	for _, fragment := range strings.Split(raw, fragmentSeparator) {
		if fragment == "" {
			continue
		}
		key, value, found := strings.Cut(fragment, "=")
		if !found || value == "" {
			values[key] = []string{}
			continue
		}
		values[key] = strings.Split(value, valueSeparator)
	}
	for _, k := range s.Keys() {
		current, present := values[k.Name]
		if (!present && k.Required) || isDefault(current) {
			values[k.Name] = []string{k.Default}
		}
	}
	return Params{values: values}
}

func isDefault(values []string) bool {
	return len(values) == 1 && values[0] == DefaultToken
}

// Of builds Params from a literal map.
func Of(values map[string][]string) Params {
	out := make(map[string][]string, len(values))
	for k, v := range values {
		out[k] = slices.Clone(v)
	}
	return Params{values: out}
}

func (p Params) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Values returns a copy of the values of key.
func (p Params) Values(key string) []string {
	return slices.Clone(p.values[key])
}

// First returns the first value of key.
func (p Params) First(key string) (string, bool) {
	v := p.values[key]
	if len(v) == 0 {
		return "", false
	}
	return v[0], true
}

func (p Params) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p Params) Map() map[string][]string {
	out := make(map[string][]string, len(p.values))
	for k, v := range p.values {
		out[k] = slices.Clone(v)
	}
	return out
}

func (p Params) Len() int {
	return len(p.values)
}

// Encode serializes p back to the segment form with keys sorted.
func (p Params) Encode() string {
	var b strings.Builder
	for _, k := range p.Keys() {
		b.WriteString(fragmentSeparator)
		b.WriteString(k)
		if v := p.values[k]; len(v) > 0 {
			b.WriteString("=")
			b.WriteString(strings.Join(v, valueSeparator))
		}
	}
	return b.String()
}
