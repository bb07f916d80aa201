package funcref

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var (
	ErrFileNotFound = errors.New("file not registered")
	ErrFuncNotFound = errors.New("function not registered")
	ErrNilFunc      = errors.New("function body not defined")
)

// Entry is one registered function. Two refs aliased to the same function
// share an *Entry, which is what chain de-duplication compares.
type Entry[T any] struct {
	Ref Ref
	Fn  T
}

type Registry[T any] struct {
	mu    sync.RWMutex
	files map[string]map[string]*Entry[T]
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{files: make(map[string]map[string]*Entry[T])}
}

// Register binds name inside file to fn. Registering nil is allowed and
// records a function without a body; Lookup reports it as ErrNilFunc.
func (r *Registry[T]) Register(file, name string, fn T) error {
	file = CleanFile(file)
	if file == "" || name == "" {
		return fmt.Errorf("%w: file and function name are required", ErrMalformed)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	funcs, ok := r.files[file]
	if !ok {
		funcs = make(map[string]*Entry[T])
		r.files[file] = funcs
	}
	if _, exists := funcs[name]; exists {
		return fmt.Errorf("function %s%s%s already registered", file, Separator, name)
	}
	funcs[name] = &Entry[T]{Ref: Ref{File: file, Func: name}, Fn: fn}
	return nil
}

func (r *Registry[T]) MustRegister(file, name string, fn T) {
	if err := r.Register(file, name, fn); err != nil {
		panic(err)
	}
}

// Alias makes from resolve to the entry registered under to.
func (r *Registry[T]) Alias(from, to Ref) error {
	entry, err := r.Lookup(to)
	if err != nil {
		return err
	}
	from = Ref{File: CleanFile(from.File), Func: from.Func}
	r.mu.Lock()
	defer r.mu.Unlock()
	funcs, ok := r.files[from.File]
	if !ok {
		funcs = make(map[string]*Entry[T])
		r.files[from.File] = funcs
	}
	if _, exists := funcs[from.Func]; exists {
		return fmt.Errorf("function %s already registered", from)
	}
	funcs[from.Func] = entry
	return nil
}

// Lookup returns the entry for a normalized ref.
func (r *Registry[T]) Lookup(ref Ref) (*Entry[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	funcs, ok := r.files[CleanFile(ref.File)]
	if !ok {
		return nil, fmt.Errorf("%w: no file with name %q found", ErrFileNotFound, ref.File)
	}
	entry, ok := funcs[ref.Func]
	if !ok {
		return nil, fmt.Errorf("%w: no function with name %q found in %q", ErrFuncNotFound, ref.Func, ref.File)
	}
	if isNil(entry.Fn) {
		return nil, fmt.Errorf("%w for function %q", ErrNilFunc, ref.Func)
	}
	return entry, nil
}

// Refs lists every registered ref, sorted.
func (r *Registry[T]) Refs() []Ref {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Ref, 0)
	for file, funcs := range r.files {
		for name := range funcs {
			out = append(out, Ref{File: file, Func: name})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
