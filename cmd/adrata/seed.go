package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adrata/backend/internal/application/services"
	"github.com/adrata/backend/internal/infrastructure/database"
)

var (
	seedName      string
	seedCompanies int
	seedPeople    int
	seedUsers     int
	seedValue     int64
	seedPassword  string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create demo data",
}

var seedDemoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Create a demo workspace with users, companies, people and pipeline",
	Long: `Create a new workspace filled with generated data, including a few planted
duplicates and fake records for the cleanup commands to find. The same --seed
always produces the same data. Missing tables are created first.

Seeding only ever creates a new workspace, so it does not take --apply.

Examples:
  adrata seed demo --name "Acme Demo"
  adrata seed demo --name "Big Demo" --companies 50 --people 20 --users 5 --seed 7`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			if err := database.EnsureSchema(ctx, e.conn.DB()); err != nil {
				return err
			}
			result, err := e.sm.Seeder.Seed(ctx, services.SeedRequest{
				WorkspaceName:    seedName,
				Companies:        seedCompanies,
				PeoplePerCompany: seedPeople,
				Users:            seedUsers,
				Seed:             seedValue,
				Password:         seedPassword,
			})
			if err != nil {
				return err
			}
			if err := render(cmd.OutOrStdout(), result, outputFormat()); err != nil {
				return err
			}
			if outputFormat() == FormatText && len(result.Users) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "\nUsers log in with the seeded password. Issue a token with:\n  adrata token -w %s --user %s\n",
					result.Slug, result.Users[0].Email)
			}
			return nil
		})
	},
}

func init() {
	seedDemoCmd.Flags().StringVar(&seedName, "name", "", "Workspace name (required)")
	seedDemoCmd.Flags().IntVar(&seedCompanies, "companies", services.DefaultSeedCompanies, "Number of companies")
	seedDemoCmd.Flags().IntVar(&seedPeople, "people", services.DefaultSeedPeoplePerCompany, "People per company")
	seedDemoCmd.Flags().IntVar(&seedUsers, "users", services.DefaultSeedUsers, "Number of users")
	seedDemoCmd.Flags().Int64Var(&seedValue, "seed", 1, "Random seed")
	seedDemoCmd.Flags().StringVar(&seedPassword, "password", "", "Password for every seeded user (default: the demo password)")
	_ = seedDemoCmd.MarkFlagRequired("name")

	seedCmd.AddCommand(seedDemoCmd)
	rootCmd.AddCommand(seedCmd)
}
