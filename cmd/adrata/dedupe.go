package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/adrata/backend/internal/application/services"
	"github.com/adrata/backend/pkg/constants"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Find and merge duplicate people or companies",
	Long: `Group active records that describe the same entity and merge each group into
its survivor. People match on email, companies on normalized name or domain.

Examples:
  adrata dedupe people -w acme
  adrata dedupe companies -w acme --apply`,
}

func newDedupeTableCmd(table string) *cobra.Command {
	return &cobra.Command{
		Use:   table,
		Short: "Merge duplicate " + table,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				ws, err := e.workspace(ctx)
				if err != nil {
					return err
				}
				groups, err := e.sm.Cleanup.FindDuplicates(ctx, ws, table)
				if err != nil {
					return err
				}
				report, err := e.sm.Cleanup.MergeDuplicates(ctx, ws, groups, services.MergeOptions{Apply: applyFlag})
				if err != nil {
					return err
				}
				if err := render(cmd.OutOrStdout(), report, outputFormat()); err != nil {
					return err
				}
				dryRunNote(cmd, report.Applied)
				return nil
			})
		},
	}
}

func init() {
	dedupeCmd.AddCommand(newDedupeTableCmd(constants.TablePerson))
	dedupeCmd.AddCommand(newDedupeTableCmd(constants.TableCompany))
	rootCmd.AddCommand(dedupeCmd)
}
