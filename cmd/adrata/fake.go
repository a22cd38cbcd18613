package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/adrata/backend/internal/application/services"
	"github.com/adrata/backend/pkg/constants"
)

var (
	fakeTable string
	fakeHard  bool
)

var fakeCmd = &cobra.Command{
	Use:   "fake",
	Short: "Detect and remove fake or test records",
	Long: `Evaluate records against the fake-record rules (placeholder names, test
emails, 555 phone numbers and any rules loaded from FAKE_RULES_FILE).

Examples:
  adrata fake detect -w acme
  adrata fake remove -w acme --table companies --apply
  adrata fake remove -w acme --hard --apply`,
}

var fakeDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "List records that trip a fake-record rule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			ws, err := e.workspace(ctx)
			if err != nil {
				return err
			}
			report, err := e.sm.Cleanup.DetectFakeRecords(ctx, ws, fakeTable)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), report, outputFormat())
		})
	},
}

var fakeRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Delete detected fake records (soft unless --hard)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			ws, err := e.workspace(ctx)
			if err != nil {
				return err
			}
			report, err := e.sm.Cleanup.RemoveFakeRecords(ctx, ws, fakeTable, services.RemoveOptions{Apply: applyFlag, Hard: fakeHard})
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
	fakeCmd.PersistentFlags().StringVar(&fakeTable, "table", constants.TablePerson, "Table to scan (people, companies)")
	fakeRemoveCmd.Flags().BoolVar(&fakeHard, "hard", false, "Delete rows permanently instead of setting deletedAt")

	fakeCmd.AddCommand(fakeDetectCmd)
	fakeCmd.AddCommand(fakeRemoveCmd)
	rootCmd.AddCommand(fakeCmd)
}
