package commands

import (
	"fmt"

	"github.com/notargets/kernelbench/harness"
	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available benchmarks",
		Args:  cobra.NoArgs,
		// no configuration needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, b := range harness.Benchmarks() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-24s %s\n", b.Alias, b.Name, b.Short)
			}
			return nil
		},
	}
}
