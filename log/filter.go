package log

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// FilterFieldsCore wraps core so fields named in dropKeys never reach it.
// A key ending in ".*" drops every field with that prefix.
func FilterFieldsCore(core zapcore.Core, dropKeys ...string) zapcore.Core {
	f := newFieldFilter(dropKeys)
	if f.empty() {
		return core
	}
	return &dropCore{Core: core, filter: f}
}

type fieldFilter struct {
	exact    map[string]struct{}
	prefixes []string
}

func newFieldFilter(keys []string) fieldFilter {
	f := fieldFilter{exact: map[string]struct{}{}}
	for _, key := range keys {
		key = strings.TrimSpace(key)
		switch {
		case key == "":
		case strings.HasSuffix(key, ".*"):
			f.prefixes = append(f.prefixes, strings.TrimSuffix(key, "*"))
		default:
			f.exact[key] = struct{}{}
		}
	}
	return f
}

func (f fieldFilter) empty() bool {
	return len(f.exact) == 0 && len(f.prefixes) == 0
}

func (f fieldFilter) drops(key string) bool {
	if _, ok := f.exact[key]; ok {
		return true
	}
	for _, p := range f.prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// apply returns the kept fields in a new slice; zap may reuse the input.
func (f fieldFilter) apply(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, 0, len(fields))
	for _, field := range fields {
		if !f.drops(field.Key) {
			out = append(out, field)
		}
	}
	return out
}

type dropCore struct {
	zapcore.Core
	filter fieldFilter
}

func (c *dropCore) With(fields []zapcore.Field) zapcore.Core {
	return &dropCore{Core: c.Core.With(c.filter.apply(fields)), filter: c.filter}
}

// Check registers c itself; the embedded Check would hand the entry to the
// inner core and skip Write.
func (c *dropCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *dropCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, c.filter.apply(fields))
}
