// Package cmd is the cobra command tree of the metaroute binary.
package cmd

import "github.com/spf13/cobra"

// Commander contributes one command. Its Use may hold several words, see
// Root.RegisterOne.
type Commander interface {
	Command() *cobra.Command
}
