package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/adrata/backend/internal/application/services"
	"github.com/adrata/backend/pkg/constants"
)

var (
	userEmail    string
	userName     string
	userPassword string
	userRole     string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage operator accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user and add them to a workspace",
	Long: `Create a login with a bcrypt-hashed password and a membership in --workspace.

Examples:
  adrata user create -w acme --email ops@acme.com --name "Ops" --password 'S3cure!pass' --role WORKSPACE_ADMIN`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if workspaceFlag == "" {
			return errWorkspaceRequired
		}
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			user, err := e.sm.Users.CreateUser(ctx, services.CreateUserRequest{
				Email:       userEmail,
				Name:        userName,
				Password:    userPassword,
				WorkspaceID: workspaceFlag,
				Role:        userRole,
			})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), user, outputFormat())
		})
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "Login email (required)")
	userCreateCmd.Flags().StringVar(&userName, "name", "", "Display name")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Password (required)")
	userCreateCmd.Flags().StringVar(&userRole, "role", constants.RoleSeller, "Workspace role")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}
