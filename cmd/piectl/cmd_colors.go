package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"expensepie/internal/core"
)

func newColorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "colors",
		Short: "List the named colors accepted for categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tHEX")
			for _, name := range core.ColorNames() {
				c, err := core.ParseColor(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\n", name, c.Hex())
			}
			return tw.Flush()
		},
	}
}
