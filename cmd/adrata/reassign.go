package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/adrata/backend/internal/application/services"
)

var (
	reassignFrom   string
	reassignTo     string
	reassignTables []string
)

var reassignCmd = &cobra.Command{
	Use:   "reassign",
	Short: "Transfer record ownership between users",
	Long: `Move every record owned by one user to another user of the same workspace.

Examples:
  adrata reassign -w acme --from u-123 --to u-456
  adrata reassign -w acme --from u-123 --to u-456 --tables people,leads --apply`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			ws, err := e.workspace(ctx)
			if err != nil {
				return err
			}
			report, err := e.sm.Migration.ReassignOwnership(ctx, services.ReassignRequest{
				WorkspaceID: ws,
				FromUserID:  reassignFrom,
				ToUserID:    reassignTo,
				Tables:      reassignTables,
				Apply:       applyFlag,
			})
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

func init() {
	reassignCmd.Flags().StringVar(&reassignFrom, "from", "", "Current owner user id (required)")
	reassignCmd.Flags().StringVar(&reassignTo, "to", "", "New owner user id (required)")
	reassignCmd.Flags().StringSliceVar(&reassignTables, "tables", nil, "Limit to these tables (default: all owner tables)")
	_ = reassignCmd.MarkFlagRequired("from")
	_ = reassignCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(reassignCmd)
}
