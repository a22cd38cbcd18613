package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adrata/backend/internal/application/services"
)

var (
	bgSource      string
	bgFile        string
	bgOut         string
	bgMinSize     int
	bgOptimalSize int
)

var buyerGroupCmd = &cobra.Command{
	Use:   "buyer-group <companyId>",
	Short: "Identify a company's buyer groups",
	Long: `Profile a company's employees, group them by department and pick the optimal
buyer group. Employees come from the database, a BrightData snapshot or a JSON
file. Only the database source can write roles back (--apply).

Examples:
  adrata buyer-group c-123 -w acme
  adrata buyer-group c-123 -w acme --apply
  adrata buyer-group c-123 -w acme --source brightdata --out acme-groups.json
  adrata buyer-group c-123 -w acme --source file --file employees.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			ws, err := e.workspace(ctx)
			if err != nil {
				return err
			}
			result, err := e.sm.BuyerGroups.Discover(ctx, services.DiscoverRequest{
				WorkspaceID:  ws,
				CompanyID:    args[0],
				Source:       bgSource,
				FilePath:     bgFile,
				Apply:        applyFlag,
				MinGroupSize: bgMinSize,
				OptimalSize:  bgOptimalSize,
			})
			if err != nil {
				return err
			}
			if bgOut != "" {
				if err := writeReportFile(bgOut, result.Report); err != nil {
					return err
				}
				e.logger.Sugar().Infof("📄 Report written to %s", bgOut)
			}
			if err := render(cmd.OutOrStdout(), result, outputFormat()); err != nil {
				return err
			}
			dryRunNote(cmd, result.Applied)
			return nil
		})
	},
}

func writeReportFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func init() {
	buyerGroupCmd.Flags().StringVar(&bgSource, "source", services.SourceDB, "Employee source (db, brightdata, file)")
	buyerGroupCmd.Flags().StringVar(&bgFile, "file", "", "JSON or JSONL employee file for --source file")
	buyerGroupCmd.Flags().StringVar(&bgOut, "out", "", "Also write the full report as JSON to this path")
	buyerGroupCmd.Flags().IntVar(&bgMinSize, "min-size", 0, "Smallest department that forms a group")
	buyerGroupCmd.Flags().IntVar(&bgOptimalSize, "optimal-size", 0, "Size of the optimal buyer group")
	rootCmd.AddCommand(buyerGroupCmd)
}
