package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkordes/modelio/internal/repo"
	"github.com/pkordes/modelio/internal/tabular"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		output string
		format string
		ids    []int64
	)

	cmd := &cobra.Command{
		Use:   "export <resource>",
		Short: "Export the records of a resource to a CSV or XLSX file",
		Long: `Export the records of a resource.

The file format follows the extension of --output (.csv or .xlsx). Use
--output - to write to stdout, in which case --format chooses the format.
Without --id every record is exported; an export with no records fails and
writes nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := a.transfer(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			var q repo.Query
			if cmd.Flags().Changed("id") {
				q.IDs = ids
			}

			if output == "-" {
				f, err := tabular.ParseFormat(format)
				if err != nil {
					return err
				}
				return svc.Export(cmd.Context(), args[0], f, a.out, q)
			}
			if err := svc.ExportFile(cmd.Context(), args[0], output, q); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, or - for stdout")
	cmd.Flags().StringVar(&format, "format", "csv", "format when writing to stdout (csv or xlsx)")
	cmd.Flags().Int64SliceVar(&ids, "id", nil, "export only these identifiers (repeatable)")
	cmd.MarkFlagRequired("output")
	return cmd
}
