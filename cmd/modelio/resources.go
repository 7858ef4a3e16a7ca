package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newResourcesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List the resources declared in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.catalog()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RESOURCE\tMODEL\tCOLUMNS")
			for _, r := range cat.Resources() {
				var cols []string
				for _, fd := range r.Fields() {
					col := fd.Name
					if fd.Surrogate != "" {
						col += "(" + fd.Kind.String() + ":" + fd.Surrogate + ")"
					}
					cols = append(cols, col)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name(), r.Model().Name, strings.Join(cols, ", "))
			}
			return tw.Flush()
		},
	}
}
