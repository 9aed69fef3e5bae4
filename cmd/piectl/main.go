// Command piectl partitions weighted entries from the command line, without
// a running server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "piectl",
		Short: "Pie chart partitioning tools",
		Long: `piectl exposes the angular partition engine used by the expensepie
server. It reads weighted entries and prints the slice each one receives.`,
		SilenceUsage:  true,
		// main reports the error once.
		SilenceErrors: true,
	}
	root.AddCommand(newPartitionCmd(), newColorsCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
