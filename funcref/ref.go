// Package funcref parses function reference strings of the form
// "<file-path>-><function-name>" and resolves them against a registry that is
// filled explicitly at startup.
package funcref

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const Separator = "->"

var ErrMalformed = errors.New("malformed function reference")

// Ref is a parsed function reference. File is slash separated and, once
// normalized, relative to the registry root.
type Ref struct {
	File string
	Func string
}

func (r Ref) String() string {
	return r.File + Separator + r.Func
}

func (r Ref) IsZero() bool {
	return r.File == "" && r.Func == ""
}

// Parse splits raw on the separator. Empty segments are discarded, so both the
// file and the function part must be present. More than two non-empty
// segments, as in "a->b->c", is an ErrMalformed error rather than a silent
// truncation.
func Parse(raw string) (Ref, error) {
	parts := make([]string, 0, 2)
	for _, part := range strings.Split(raw, Separator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parts = append(parts, part)
	}
	if len(parts) != 2 {
		return Ref{}, fmt.Errorf("%w %q: expected <file>%s<function>", ErrMalformed, raw, Separator)
	}
	return Ref{File: parts[0], Func: parts[1]}, nil
}

// Normalize makes r.File relative to the registry root by joining it onto
// anchor. A file extension is dropped so "./handlers.js" and "./handlers"
// name the same file.
func (r Ref) Normalize(anchor string) Ref {
	file := r.File
	if ext := path.Ext(file); ext != "" {
		file = strings.TrimSuffix(file, ext)
	}
	return Ref{File: CleanFile(path.Join(anchor, file)), Func: r.Func}
}

// Resolve parses raw and normalizes it against anchor.
func Resolve(anchor, raw string) (Ref, error) {
	ref, err := Parse(raw)
	if err != nil {
		return Ref{}, err
	}
	return ref.Normalize(anchor), nil
}

// CleanFile cleans a registry file key. Leading "./" and "/" are removed.
func CleanFile(file string) string {
	file = path.Clean("/" + strings.ReplaceAll(file, "\\", "/"))
	return strings.TrimPrefix(file, "/")
}
