package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/lexia/internal/tablequery"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	var (
		flags   queryFlags
		columns []string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every matching record as CSV",
		Long: `Run search, filters and sort over the records and write all matches as
CSV to stdout. Every cell is quoted. Columns default to the sorted keys of
the first matching record. Nothing is written when no record matches.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := root.loadRecords(cmd)
			if err != nil {
				return err
			}
			q, err := flags.query(records)
			if err != nil {
				return err
			}

			matched := tablequery.Apply(records, q)
			if err := tablequery.WriteCSV(cmd.OutOrStdout(), matched, columns); err != nil {
				return err
			}
			root.logger(cmd).Info("export done", "rows", len(matched))
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "CSV columns in order (default: keys of the first row)")
	return cmd
}
