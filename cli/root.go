// Package cli wires the agentplane commands: the management API server,
// the workflow worker host, and database migrations.
package cli

import (
	"fmt"
	"os"

	"github.com/agentplane/agentplane/pkg/logger"
	"github.com/agentplane/agentplane/pkg/version"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// RootCmd builds the agentplane command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "agentplane",
		Short: "Control plane for containerized AI agents",
		Long: "agentplane registers agents, builds their action images, rolls out " +
			"their action servers, and runs their tasks as durable workflows.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupContext(cmd)
		},
	}
	root.PersistentFlags().String("env-file", ".env", "environment file loaded before configuration")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	root.PersistentFlags().Bool("log-json", false, "emit JSON logs; overrides LOG_JSON")
	root.AddCommand(
		serveCmd(),
		workerCmd(),
		migrateCmd(),
		versionCmd(),
	)
	return root
}

// setupContext loads the env file, promotes log flags to environment
// variables so config.Load sees the same values, and plants the process
// logger into the command context.
func setupContext(cmd *cobra.Command) error {
	if err := loadEnvFile(cmd); err != nil {
		return err
	}
	if err := promoteLogFlags(cmd); err != nil {
		return err
	}
	level := getEnvOrDefault("LOG_LEVEL", "info")
	logJSON := os.Getenv("LOG_JSON") == "true"
	log := logger.SetupLogger(level, logJSON, false)
	cmd.SetContext(logger.ContextWithLogger(cmd.Context(), log))
	return nil
}

func loadEnvFile(cmd *cobra.Command) error {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile == "" {
		return nil
	}
	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat env file %s: %w", envFile, err)
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}
	return nil
}

func promoteLogFlags(cmd *cobra.Command) error {
	if cmd.Flags().Changed("log-level") {
		level, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return fmt.Errorf("failed to get log-level flag: %w", err)
		}
		if err := os.Setenv("LOG_LEVEL", level); err != nil {
			return fmt.Errorf("failed to set LOG_LEVEL: %w", err)
		}
	}
	if cmd.Flags().Changed("log-json") {
		logJSON, err := cmd.Flags().GetBool("log-json")
		if err != nil {
			return fmt.Errorf("failed to get log-json flag: %w", err)
		}
		if err := os.Setenv("LOG_JSON", fmt.Sprintf("%t", logJSON)); err != nil {
			return fmt.Errorf("failed to set LOG_JSON: %w", err)
		}
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			info := version.Get()
			fmt.Fprintf(cmd.OutOrStdout(), "agentplane %s (commit %s, built %s)\n",
				info.Version, info.CommitHash, info.BuildDate)
		},
	}
}
