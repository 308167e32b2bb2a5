package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/agentplane/agentplane/engine/infra/postgres"
	"github.com/agentplane/agentplane/pkg/config"
	"github.com/agentplane/agentplane/pkg/logger"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.FromContext(ctx)
			log.Info("Applying database migrations")
			if err := postgres.ApplyMigrations(ctx, cfg.Database.ConnString); err != nil {
				return err
			}
			log.Info("Database migrations applied")
			return nil
		},
	}
}
