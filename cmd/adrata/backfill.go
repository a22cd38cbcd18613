package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/adrata/backend/internal/application/services"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Backfill derived fields",
	Long: `Recompute fields other tooling depends on.

  names          fill fullName from firstName/lastName (and the reverse)
  domains        derive company domains from their websites
  company-links  link people to the company their email domain belongs to

Examples:
  adrata backfill names -w acme
  adrata backfill company-links -w acme --apply`,
}

type backfillFunc func(ctx context.Context, workspaceID string, apply bool) (*services.MigrationReport, error)

func newBackfillCmd(use, short string, pick func(*services.MigrationService) backfillFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				ws, err := e.workspace(ctx)
				if err != nil {
					return err
				}
				report, err := pick(e.sm.Migration)(ctx, ws, applyFlag)
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
	backfillCmd.AddCommand(newBackfillCmd("names", "Fill missing name parts",
		func(m *services.MigrationService) backfillFunc { return m.BackfillNames }))
	backfillCmd.AddCommand(newBackfillCmd("domains", "Derive company domains from websites",
		func(m *services.MigrationService) backfillFunc { return m.BackfillCompanyDomains }))
	backfillCmd.AddCommand(newBackfillCmd("company-links", "Link people to companies by email domain",
		func(m *services.MigrationService) backfillFunc { return m.LinkPeopleToCompanies }))
	rootCmd.AddCommand(backfillCmd)
}
