package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/bronystylecrazy/metaroute/dispatch"
	"github.com/bronystylecrazy/metaroute/middleware"
	"github.com/bronystylecrazy/metaroute/schema"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/multierr"
)

type routesCommandParams struct {
	fx.In

	Store       *schema.Store
	Handlers    *dispatch.HandlerRegistry
	Middlewares *middleware.Registry
	MwConfig    middleware.Config
}

type RoutesListCommand struct {
	params routesCommandParams
}

func NewRoutesListCommand(in routesCommandParams) *RoutesListCommand {
	return &RoutesListCommand{params: in}
}

func (s *RoutesListCommand) Command() *cobra.Command {
	c := &cobra.Command{
		Use:           "routes list",
		Short:         "List every route declared in the metadata tree",
		SilenceErrors: true,
		RunE:          s.Run,
	}
	c.Flags().String("api-version", "", "only list routes of this version")
	return c
}

func (s *RoutesListCommand) Run(cmd *cobra.Command, args []string) error {
	only, err := cmd.Flags().GetString("api-version")
	if err != nil {
		return err
	}
	return writeRoutes(cmd, s.params.Store.Snapshot(), strings.ToLower(only))
}

func writeRoutes(cmd *cobra.Command, snap *schema.Snapshot, only string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tCATEGORY\tREQUEST\tMETHOD\tHANDLER\tPARAMETERS\tDESCRIPTION")
	snap.Walk(func(version string, route schema.Route) {
		if only != "" && version != only {
			return
		}
		handlers := route.Handlers()
		params := parameterSummary(route)
		for _, method := range route.Methods() {
			ref, ok := handlers[method]
			if !ok {
				ref = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", version, route.Category(), route.Name(), method, ref, params, route.Description())
		}
	})
	return w.Flush()
}

// parameterSummary renders the declared parameters as
// "headers=A,B;query=id;support=lang", or "-" when there are none.
func parameterSummary(route schema.Route) string {
	var parts []string
	for _, group := range []struct {
		name string
		keys []string
	}{
		{"headers", route.RequiredHeaders()},
		{"query", route.QueryParams()},
		{"support", route.SupportParams()},
	} {
		if len(group.keys) > 0 {
			parts = append(parts, group.name+"="+strings.Join(group.keys, ","))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ";")
}

type RoutesValidateCommand struct {
	params routesCommandParams
}

func NewRoutesValidateCommand(in routesCommandParams) *RoutesValidateCommand {
	return &RoutesValidateCommand{params: in}
}

func (s *RoutesValidateCommand) Command() *cobra.Command {
	return &cobra.Command{
		Use:           "routes validate",
		Short:         "Check that every referenced handler and middleware is registered",
		SilenceErrors: true,
		RunE:          s.Run,
	}
}

func (s *RoutesValidateCommand) Run(cmd *cobra.Command, args []string) error {
	p := s.params
	err := dispatch.Validate(p.Store.Snapshot(), p.Handlers, p.Middlewares, p.MwConfig)
	if err == nil {
		_, werr := fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return werr
	}
	problems := multierr.Errors(err)
	lines := make([]string, 0, len(problems))
	for _, problem := range problems {
		lines = append(lines, problem.Error())
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(cmd.ErrOrStderr(), line)
	}
	return fmt.Errorf("%d route metadata problem(s)", len(problems))
}
