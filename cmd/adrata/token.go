package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adrata/backend/internal/application/services"
)

var tokenUser string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token for a workspace member",
	Long: `Sign a 24 hour token for the ops API. The token carries the user's role in the
workspace; without --workspace the user's active workspace is used.

Examples:
  adrata token --user ops@acme.com -w acme
  adrata token --user u-123 --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			req := services.TokenRequest{WorkspaceID: workspaceFlag}
			if strings.Contains(tokenUser, "@") {
				req.Email = tokenUser
			} else {
				req.UserID = tokenUser
			}
			issued, err := e.sm.Users.IssueToken(ctx, req)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), issued, outputFormat())
		})
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User id or email (required)")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}
