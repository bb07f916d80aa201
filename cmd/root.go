package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/bronystylecrazy/metaroute/build"
	"github.com/spf13/cobra"
)

type Root struct {
	*cobra.Command
}

func New(cmd *cobra.Command) *Root {
	defaultCmd := &cobra.Command{
		Use:          build.Name,
		Short:        "Metadata driven HTTP request router",
		SilenceUsage: true,
	}
	if cmd != nil {
		defaultCmd = cmd
	}
	return &Root{Command: defaultCmd}
}

func NewRoot() *Root { return New(nil) }

// Start executes the command selected by the arguments and returns it.
func (r *Root) Start(ctx context.Context) (*cobra.Command, error) {
	return r.ExecuteContextC(ctx)
}

func (r *Root) Register(commands ...Commander) error {
	for _, command := range commands {
		if err := r.RegisterOne(command); err != nil {
			return err
		}
	}
	return nil
}

// RegisterOne adds c under the parents named by the leading words of its Use,
// so Use "routes list" becomes the list child of a routes command. The
// default command also runs when no subcommand is given.
func (r *Root) RegisterOne(c Commander) error {
	if r == nil || r.Command == nil {
		return fmt.Errorf("root command is nil")
	}
	path, err := commandPath(c)
	if err != nil {
		return err
	}
	cmd := c.Command()
	parts := strings.Fields(path)
	leafUse := leafUseFromPath(cmd.Use, len(parts))
	if leafUse == "" {
		leafUse = parts[len(parts)-1]
	}
	cmd.Use = leafUse

	parent := r.Command
	for _, part := range parts[:len(parts)-1] {
		parent = ensureSubCommand(parent, part)
	}
	parent.AddCommand(cmd)

	if path == DefaultName() && r.RunE == nil && r.Run == nil {
		r.RunE = cmd.RunE
		r.PostRunE = cmd.PostRunE
		if r.Annotations == nil {
			r.Annotations = map[string]string{}
		}
		for k, v := range cmd.Annotations {
			r.Annotations[k] = v
		}
	}
	return nil
}

func ensureSubCommand(parent *cobra.Command, use string) *cobra.Command {
	name := strings.TrimSpace(use)
	if name == "" {
		return parent
	}
	for _, child := range parent.Commands() {
		if child.Name() == name {
			return child
		}
	}
	child := &cobra.Command{Use: name}
	parent.AddCommand(child)
	return child
}

func commandPath(c Commander) (string, error) {
	if c == nil {
		return "", fmt.Errorf("commander is nil")
	}
	cmd := c.Command()
	if cmd == nil {
		return "", fmt.Errorf("command is nil")
	}
	path := pathFromUse(cmd.Use)
	if path == "" {
		return "", fmt.Errorf("command path is empty")
	}
	return path, nil
}

func pathFromUse(use string) string {
	fields := strings.Fields(strings.TrimSpace(use))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.HasPrefix(f, "[") || strings.HasPrefix(f, "<") {
			break
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

func leafUseFromPath(use string, pathParts int) string {
	fields := strings.Fields(strings.TrimSpace(use))
	if len(fields) == 0 || pathParts <= 1 {
		return strings.TrimSpace(use)
	}
	idx := pathParts - 1
	if idx >= len(fields) {
		return ""
	}
	return strings.Join(fields[idx:], " ")
}
