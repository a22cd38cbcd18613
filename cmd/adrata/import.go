package main

import (
	"github.com/spf13/cobra"

	"github.com/adrata/backend/internal/application/services"
)

var (
	importSheet     string
	importSource    string
	importReportDir string
	importExport    string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Clean, report on and import a CSV or XLSX contact export",
	Long: `Standardize columns, remove duplicates, validate emails and phones and write
quality, dedupe and validation reports. With --apply, missing companies and
people are created in the workspace.

A dry run needs no database connection.

Examples:
  adrata import leads.csv --report-dir reports --export cleaned.xlsx
  adrata import contacts.xlsx --sheet Contacts -w acme --apply`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := services.ImportRequest{
			Path:       args[0],
			Sheet:      importSheet,
			Source:     importSource,
			Apply:      applyFlag,
			ReportDir:  importReportDir,
			ExportPath: importExport,
		}
		ctx := cmd.Context()

		var svc *services.ImportService
		if applyFlag {
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()
			if req.WorkspaceID, err = e.workspace(ctx); err != nil {
				return err
			}
			svc = e.sm.Import
		} else {
			_, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			svc = services.NewImportService(nil, logger)
		}

		result, err := svc.Import(ctx, req)
		if err != nil {
			return err
		}
		if err := render(cmd.OutOrStdout(), result, outputFormat()); err != nil {
			return err
		}
		dryRunNote(cmd, result.Applied)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	importCmd.Flags().StringVar(&importSource, "source", services.DefaultImportSource, "Source label stored on imported records")
	importCmd.Flags().StringVar(&importReportDir, "report-dir", "", "Directory for the markdown reports")
	importCmd.Flags().StringVar(&importExport, "export", "", "Write the cleaned rows to this XLSX file")
	rootCmd.AddCommand(importCmd)
}
