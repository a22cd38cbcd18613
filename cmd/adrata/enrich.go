package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/adrata/backend/internal/application/services"
	"github.com/adrata/backend/pkg/constants"
)

var (
	enrichLimit       int
	enrichMissingOnly bool
	enrichOverwrite   bool
	enrichConcurrency int
	enrichStale       time.Duration
	queueLimit        int
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich people and companies from data providers",
	Long: `Fill contact and firmographic fields from CoreSignal, Lusha, Prospeo and
company websites. Providers without an API key are skipped.

Examples:
  adrata enrich people -w acme --missing-only --limit 200
  adrata enrich companies -w acme --stale 720h --apply
  adrata enrich queue --limit 100`,
}

type enrichFunc func(ctx context.Context, workspaceID string, opts services.EnrichOptions) (*services.EnrichSummary, error)

func newEnrichTableCmd(table string, pick func(*services.EnrichmentService) enrichFunc) *cobra.Command {
	return &cobra.Command{
		Use:   table,
		Short: "Enrich " + table + " in a workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				ws, err := e.workspace(ctx)
				if err != nil {
					return err
				}
				summary, err := pick(e.sm.Enrichment)(ctx, ws, services.EnrichOptions{
					Limit:       enrichLimit,
					MissingOnly: enrichMissingOnly,
					StaleAfter:  enrichStale,
					Concurrency: enrichConcurrency,
					Apply:       applyFlag,
					Overwrite:   enrichOverwrite,
				})
				if err != nil {
					return err
				}
				if err := render(cmd.OutOrStdout(), summary, outputFormat()); err != nil {
					return err
				}
				dryRunNote(cmd, summary.Applied)
				return nil
			})
		},
	}
}

var enrichQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Process pending enrichment jobs once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			summary, err := e.sm.Enrichment.ProcessQueue(ctx, queueLimit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), summary, outputFormat())
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{
		newEnrichTableCmd(constants.TablePerson, func(s *services.EnrichmentService) enrichFunc { return s.EnrichPeople }),
		newEnrichTableCmd(constants.TableCompany, func(s *services.EnrichmentService) enrichFunc { return s.EnrichCompanies }),
	} {
		c.Flags().IntVar(&enrichLimit, "limit", 0, "Maximum records to enrich (0 = all)")
		c.Flags().BoolVar(&enrichMissingOnly, "missing-only", false, "Only records missing contact or firmographic data")
		c.Flags().BoolVar(&enrichOverwrite, "overwrite", false, "Replace existing values instead of only filling blanks")
		c.Flags().IntVar(&enrichConcurrency, "concurrency", 0, "Parallel provider calls (default ENRICH_CONCURRENCY)")
		c.Flags().DurationVar(&enrichStale, "stale", 0, "Only records not enriched within this duration")
		enrichCmd.AddCommand(c)
	}
	enrichQueueCmd.Flags().IntVar(&queueLimit, "limit", services.DefaultQueueBatch, "Maximum jobs to process")
	enrichCmd.AddCommand(enrichQueueCmd)
	rootCmd.AddCommand(enrichCmd)
}
