package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adrata/backend/internal/application/services"
	"github.com/adrata/backend/internal/config"
	"github.com/adrata/backend/internal/infrastructure/database"
	"github.com/adrata/backend/internal/infrastructure/persistence"
	"github.com/adrata/backend/internal/logging"
	"github.com/adrata/backend/pkg/auth"
)

var (
	workspaceFlag string
	applyFlag     bool
	formatFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "adrata",
	Short: "Adrata CRM data operations",
	Long: `Operational tooling for the Adrata CRM database: duplicate and fake record
cleanup, backfills, ownership transfers, diagnostics, enrichment, buyer group
discovery, imports and demo data.

Every command that writes is a dry run unless --apply is given.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := parseFormat(formatFlag)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace id or slug")
	rootCmd.PersistentFlags().BoolVar(&applyFlag, "apply", false, "Write changes (default is a dry run)")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", string(FormatText), "Output format (text, json)")
}

var errWorkspaceRequired = errors.New("--workspace is required")

// env is everything a database-backed command needs.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	conn   *database.Connection
	sm     *services.ServiceManager
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.Must(cfg.Log)
	auth.SetSecret(cfg.JWTSecret)
	return cfg, logger, nil
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	conn, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	sm, err := services.NewServiceManager(conn.DB(), cfg, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, conn: conn, sm: sm}, nil
}

func (e *env) Close() {
	if err := e.sm.Close(); err != nil {
		e.logger.Warn("⚠️ Failed to close enrichment cache", zap.Error(err))
	}
	if err := e.conn.Close(); err != nil {
		e.logger.Warn("⚠️ Failed to close database", zap.Error(err))
	}
	_ = e.logger.Sync()
}

// workspace resolves --workspace (id or slug) to a workspace id.
func (e *env) workspace(ctx context.Context) (string, error) {
	if workspaceFlag == "" {
		return "", errWorkspaceRequired
	}
	ws, err := persistence.NewWorkspaceRepository(e.conn.DB()).Resolve(ctx, workspaceFlag)
	if err != nil {
		return "", fmt.Errorf("workspace %q: %w", workspaceFlag, err)
	}
	return ws.ID, nil
}

// optionalWorkspace is workspace for commands that may also run across all workspaces.
func (e *env) optionalWorkspace(ctx context.Context) (string, error) {
	if workspaceFlag == "" {
		return "", nil
	}
	return e.workspace(ctx)
}

// withEnv opens the environment for the duration of fn.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(ctx, e)
}

// dryRunNote reminds the operator that nothing was written.
func dryRunNote(cmd *cobra.Command, applied bool) {
	if !applied && outputFormat() == FormatText {
		fmt.Fprintln(cmd.OutOrStdout(), "\n(dry run: re-run with --apply to write changes)")
	}
}
