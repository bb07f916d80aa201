package schema

import (
	"sort"
	"sync/atomic"

	"github.com/bronystylecrazy/metaroute/fault"
	"go.uber.org/zap"
)

// Snapshot is one immutable load of the metadata tree. It is safe to share
// between concurrent requests.
type Snapshot struct {
	path     PathSchema
	support  SupportSchema
	versions map[string]*VersionSnapshot
}

type VersionSnapshot struct {
	name      string
	responses ResponseSchemas
	tables    map[string]*RouteTable
}

func (s *Snapshot) version(name string) *VersionSnapshot {
	vs, ok := s.versions[name]
	if !ok {
		vs = &VersionSnapshot{name: name, tables: map[string]*RouteTable{}}
		s.versions[name] = vs
	}
	return vs
}

func (s *Snapshot) PathSchema() PathSchema       { return s.path }
func (s *Snapshot) SupportSchema() SupportSchema { return s.support }

func (s *Snapshot) Versions() []string {
	out := make([]string, 0, len(s.versions))
	for name := range s.versions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Snapshot) Version(name string) (*VersionSnapshot, bool) {
	vs, ok := s.versions[name]
	return vs, ok
}

func (v *VersionSnapshot) Name() string                     { return v.name }
func (v *VersionSnapshot) ResponseSchemas() ResponseSchemas { return v.responses }

func (v *VersionSnapshot) Categories() []string {
	out := make([]string, 0, len(v.tables))
	for name := range v.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (v *VersionSnapshot) Table(category string) (*RouteTable, bool) {
	t, ok := v.tables[category]
	return t, ok
}

// Store serves the current snapshot and swaps it atomically on Reload. Its
// read methods each load the current snapshot; a request that needs a
// consistent view holds on to one Snapshot instead.
type Store struct {
	loader  *Loader
	logger  *zap.Logger
	current atomic.Pointer[Snapshot]
}

func NewStore(loader *Loader, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{loader: loader, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticStore serves snap forever. Reload is a no-op.
func NewStaticStore(snap *Snapshot) *Store {
	s := &Store{logger: zap.NewNop()}
	s.current.Store(snap)
	return s
}

func (s *Store) Reload() error {
	if s.loader == nil {
		return nil
	}
	snap, err := s.loader.Load()
	if err != nil {
		return err
	}
	s.current.Store(snap)
	s.logger.Info("route metadata loaded", zap.Strings("versions", snap.Versions()))
	return nil
}

func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

func (s *Store) PathSchema() PathSchema {
	return s.Snapshot().PathSchema()
}

func (s *Store) SupportSchema() SupportSchema {
	return s.Snapshot().SupportSchema()
}

func (s *Store) ResponseSchemas(version string) ResponseSchemas {
	return s.Snapshot().ResponseSchemas(version)
}

func (s *Store) Route(version, category, request string) (Route, error) {
	return s.Snapshot().Route(version, category, request)
}

// ResponseSchemas returns the response schemas of version, or none when the
// version has no tree.
func (s *Snapshot) ResponseSchemas(version string) ResponseSchemas {
	vs, ok := s.Version(version)
	if !ok {
		return ResponseSchemas{}
	}
	return vs.ResponseSchemas()
}

// Route resolves the metadata of category/request inside version.
func (s *Snapshot) Route(version, category, request string) (Route, error) {
	vs, ok := s.Version(version)
	if !ok {
		return Route{}, fault.NotFound("cannot find category '%s', importing path metadata fails", category)
	}
	table, ok := vs.Table(category)
	if !ok {
		return Route{}, fault.NotFound("cannot find category '%s', importing path metadata fails", category)
	}
	return table.Route(request)
}

// Walk calls fn for every valid route, ordered by version, category and
// request name.
func (s *Snapshot) Walk(fn func(version string, route Route)) {
	for _, version := range s.Versions() {
		vs := s.versions[version]
		for _, category := range vs.Categories() {
			table := vs.tables[category]
			for _, name := range table.Names() {
				fn(version, table.routes[name])
			}
		}
	}
}
