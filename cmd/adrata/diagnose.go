package main

import (
	"context"

	"github.com/spf13/cobra"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Inspect the CRM database",
	Long: `Read-only diagnostics. Without --workspace, counts and consistency checks run
across every workspace.

Examples:
  adrata diagnose counts
  adrata diagnose consistency -w acme
  adrata diagnose query -w acme "SELECT id, email FROM people WHERE email LIKE '%test%'"`,
}

var diagnoseCountsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Count total, active and deleted rows per table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			ws, err := e.optionalWorkspace(ctx)
			if err != nil {
				return err
			}
			counts, err := e.sm.Diagnostics.CountRecords(ctx, ws)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), counts, outputFormat())
		})
	},
}

var diagnoseConsistencyCmd = &cobra.Command{
	Use:   "consistency",
	Short: "Check references between people, companies, owners and pipeline records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			ws, err := e.optionalWorkspace(ctx)
			if err != nil {
				return err
			}
			report, err := e.sm.Diagnostics.CheckConsistency(ctx, ws)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), report, outputFormat())
		})
	},
}

var diagnoseQueryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run a guarded read-only SELECT scoped to the workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			ws, err := e.workspace(ctx)
			if err != nil {
				return err
			}
			rows, err := e.sm.Diagnostics.RunQuery(ctx, ws, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), rows, outputFormat())
		})
	},
}

func init() {
	diagnoseCmd.AddCommand(diagnoseCountsCmd)
	diagnoseCmd.AddCommand(diagnoseConsistencyCmd)
	diagnoseCmd.AddCommand(diagnoseQueryCmd)
	rootCmd.AddCommand(diagnoseCmd)
}
