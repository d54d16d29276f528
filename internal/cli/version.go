package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the estates release, overridden at build time with
// -ldflags "-X github.com/mesh-intelligence/estates/internal/cli.Version=...".
var Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/estates"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the estates version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "estates v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
