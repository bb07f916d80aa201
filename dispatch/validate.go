package dispatch

import (
	"fmt"
	"sort"

	"github.com/bronystylecrazy/metaroute/funcref"
	"github.com/bronystylecrazy/metaroute/middleware"
	"github.com/bronystylecrazy/metaroute/schema"
	"go.uber.org/multierr"
)

// Validate checks every reference in snap and in the global middleware list
// against the registries. It reports all problems at once.
func Validate(snap *schema.Snapshot, handlers *HandlerRegistry, middlewares *middleware.Registry, mwCfg middleware.Config) error {
	var err error
	for _, raw := range mwCfg.AllRequests {
		err = multierr.Append(err, checkMiddleware(middlewares, "middlewares.all_requests", raw))
	}

	for _, version := range snap.Versions() {
		vs, _ := snap.Version(version)
		for _, category := range vs.Categories() {
			table, _ := vs.Table(category)
			for _, mw := range table.CategoryMiddlewares() {
				err = multierr.Append(err, checkMiddleware(middlewares, version+"/"+category, mw))
			}
			problems := table.Problems()
			names := make([]string, 0, len(problems))
			for name := range problems {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				err = multierr.Append(err, fmt.Errorf("%s/%s/%s: %w", version, category, name, problems[name]))
			}
		}
	}

	snap.Walk(func(version string, route schema.Route) {
		where := version + "/" + route.Category() + "/" + route.Name()
		for _, method := range route.Methods() {
			raw, ok := route.Handler(method)
			if !ok {
				err = multierr.Append(err, fmt.Errorf("%s: no handler defined for %s", where, method))
				continue
			}
			err = multierr.Append(err, checkHandler(handlers, where, route.Anchor(), raw))
			for _, mw := range route.Middlewares(method) {
				err = multierr.Append(err, checkMiddleware(middlewares, where, mw))
			}
		}
	})
	return err
}

func checkHandler(handlers *HandlerRegistry, where, anchor, raw string) error {
	ref, err := funcref.Resolve(anchor, raw)
	if err != nil {
		return fmt.Errorf("%s: handler: %w", where, err)
	}
	if _, err := handlers.Lookup(ref); err != nil {
		return fmt.Errorf("%s: handler %s: %w", where, ref, err)
	}
	return nil
}

func checkMiddleware(middlewares *middleware.Registry, where, raw string) error {
	ref, err := funcref.Resolve(middleware.Anchor, raw)
	if err != nil {
		return fmt.Errorf("%s: middleware: %w", where, err)
	}
	if _, err := middlewares.Lookup(ref); err != nil {
		return fmt.Errorf("%s: middleware %s: %w", where, ref, err)
	}
	return nil
}
