package cmd

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/fx"
)

const defaultCommandName = "serve"

var (
	defaultNameMu     sync.RWMutex
	currentDefaultCmd = defaultCommandName
)

// Use includes opts only when the command selected by the process arguments
// is name or one of its subcommands. No subcommand selects the default.
func Use(name string, opts ...fx.Option) fx.Option {
	return useFor(os.Args[1:], name, opts...)
}

// Run is Use(DefaultName(), ...).
func Run(opts ...fx.Option) fx.Option {
	return Use(DefaultName(), opts...)
}

func useFor(args []string, name string, opts ...fx.Option) fx.Option {
	if matchesPathPrefix(currentCommandPathFromArgs(args), normalizePath(name)) {
		return fx.Options(opts...)
	}
	return fx.Options()
}

// WithDefaultName sets the command that runs when none is given.
func WithDefaultName(name string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		trimmed = defaultCommandName
	}
	defaultNameMu.Lock()
	currentDefaultCmd = trimmed
	defaultNameMu.Unlock()
}

func DefaultName() string {
	defaultNameMu.RLock()
	defer defaultNameMu.RUnlock()
	return normalizePath(currentDefaultCmd)
}

func currentCommandPathFromArgs(args []string) string {
	var parts []string
	for _, arg := range args {
		trimmed := strings.TrimSpace(arg)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "-") {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) > 0 {
		return normalizePath(strings.Join(parts, " "))
	}
	return DefaultName()
}

func matchesPathPrefix(path string, want string) bool {
	if want == "" {
		return false
	}
	if path == want {
		return true
	}
	return strings.HasPrefix(path, want+" ")
}

func normalizePath(path string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(path)), " ")
}
