package main

import (
	"github.com/spf13/cobra"

	"github.com/adrata/backend/pkg/importer"
)

var csvCmd = &cobra.Command{
	Use:   "csv",
	Short: "Inspect CSV and XLSX files",
}

var csvCountCmd = &cobra.Command{
	Use:   "count <file>",
	Short: "Count data rows (header and blank rows excluded)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := importer.CountRows(args[0])
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), CSVCount{File: args[0], Rows: n}, outputFormat())
	},
}

func init() {
	csvCmd.AddCommand(csvCountCmd)
	rootCmd.AddCommand(csvCmd)
}
