// Package pathvar extracts named variables from a request path according to
// a positional schema.
package pathvar

import (
	"maps"
	"strings"

	"github.com/bronystylecrazy/metaroute/fault"
	"github.com/bronystylecrazy/metaroute/schema"
)

// DefaultToken in a path segment selects the schema default for that key.
const DefaultToken = "default"

// Vars holds the parsed path variables of one request.
type Vars struct {
	values map[string]string
}

func (v Vars) Get(key string) (string, bool) {
	val, ok := v.values[key]
	return val, ok && val != ""
}

// Value returns the variable or "" when it is absent.
func (v Vars) Value(key string) string {
	return v.values[key]
}

func (v Vars) Map() map[string]string {
	return maps.Clone(v.values)
}

func (v Vars) Category() string   { return v.values[schema.KeyCategory] }
func (v Vars) Request() string    { return v.values[schema.KeyRequest] }
func (v Vars) Support() string    { return v.values[schema.KeySupport] }
func (v Vars) Version() string    { return v.values[schema.KeyVersion] }
func (v Vars) HTTPMethod() string { return v.values[schema.KeyHTTPMethod] }

// Split splits p on "/" and drops empty segments.
func Split(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Resolve parses p against s. Keys are visited in schema order, so the first
// missing required key decides the error.
func Resolve(s schema.PathSchema, p string, method string) (Vars, error) {
	tokens := Split(p)
	values := make(map[string]string)
	for _, key := range s.Keys() {
		if key.Required && len(tokens) <= key.Sequence {
			return Vars{}, fault.Validation(400, "%s is required in request path at sequence %d, parsing path variables fails.", key.Name, key.Sequence)
		}
		var value string
		if key.Sequence < len(tokens) {
			value = tokens[key.Sequence]
		}
		if value == DefaultToken {
			value = key.Default
		}
		if value != "" {
			values[key.Name] = value
		}
	}
	if values[schema.KeyHTTPMethod] == "" {
		values[schema.KeyHTTPMethod] = method
	}
	return Vars{values: values}, nil
}

// Of builds Vars from a literal map. Useful in tests and for synthetic
// requests.
func Of(values map[string]string) Vars {
	return Vars{values: maps.Clone(values)}
}
