package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pkordes/modelio/internal/resource"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		input  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "import <resource>",
		Short: "Import a CSV or XLSX file into a resource",
		Long: `Import a file into a resource.

Rows with an identifier update that record; rows without one create a new
record. Rows whose identifier does not exist are skipped. A failing row does
not stop the import; every row's outcome is printed as a report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := a.transfer(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			rep, err := svc.ImportFile(cmd.Context(), args[0], input)
			if rep != nil {
				if perr := printReport(a, rep, asJSON); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input file (.csv or .xlsx)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	cmd.MarkFlagRequired("input")
	return cmd
}

func printReport(a *app, rep *resource.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	fmt.Fprintf(a.out, "%s: created=%d updated=%d skipped=%d failed=%d (run %s)\n",
		rep.Resource, rep.Created, rep.Updated, rep.Skipped, rep.Failed, rep.RunID)
	for _, row := range rep.Rows {
		switch {
		case row.Outcome == resource.OutcomeFailed:
			fmt.Fprintf(a.out, "  line %d: %s failed: %s\n", row.Line, row.Action, row.Error)
		case row.Outcome == resource.OutcomeSkipped:
			fmt.Fprintf(a.out, "  line %d: skipped: %s\n", row.Line, row.Error)
		case len(row.Unmatched) > 0:
			fmt.Fprintf(a.out, "  line %d: unmatched %s\n", row.Line, strings.Join(row.Unmatched, ", "))
		}
	}
	return nil
}
