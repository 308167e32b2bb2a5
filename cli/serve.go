package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	agentpg "github.com/agentplane/agentplane/engine/agent/infra/postgres"
	"github.com/agentplane/agentplane/engine/infra/cache"
	"github.com/agentplane/agentplane/engine/infra/kube"
	"github.com/agentplane/agentplane/engine/infra/monitoring"
	"github.com/agentplane/agentplane/engine/infra/postgres"
	"github.com/agentplane/agentplane/engine/infra/server"
	"github.com/agentplane/agentplane/engine/infra/temporal"
	"github.com/agentplane/agentplane/engine/state"
	taskpg "github.com/agentplane/agentplane/engine/task/infra/postgres"
	"github.com/agentplane/agentplane/pkg/config"
	"github.com/agentplane/agentplane/pkg/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the management API server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	log := logger.FromContext(ctx)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	monitor, err := monitoring.NewService(ctx, &monitoring.Config{
		Enabled: cfg.Monitoring.Enabled,
		Path:    cfg.Monitoring.Path,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize monitoring: %w", err)
	}
	monitor.SetAsGlobal()
	defer func() {
		if err := monitor.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Error("Failed to shut down monitoring", "error", err)
		}
	}()

	store, err := postgres.NewStore(ctx, &postgres.Config{ConnString: cfg.Database.ConnString})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer store.Close(context.WithoutCancel(ctx))

	redisClient, err := cache.NewRedis(ctx, &cache.Config{URL: cfg.Redis.URL})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close redis client", "error", err)
		}
	}()

	engine, err := temporal.New(&temporal.Config{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Identity:  fmt.Sprintf("agentplane-server-%d", os.Getpid()),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to temporal: %w", err)
	}
	defer engine.Close()

	clientset, err := kube.NewClientset(&kube.Config{Kubeconfig: cfg.Agents.Kubeconfig})
	if err != nil {
		return fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	states := state.NewService(
		state.NewRedisRepository(redisClient),
		state.WithLockManager(cache.NewLockManager(redisClient)),
	)

	srv, err := server.New(ctx, &server.Dependencies{
		Config:     cfg,
		Monitoring: monitor,
		Store:      store,
		Cache:      redisClient,
		Agents:     agentpg.NewRepository(store.Pool()),
		Tasks:      taskpg.NewRepository(store.Pool()),
		States:     states,
		Engine:     engine,
		Platform:   kube.New(clientset),
		FS:         afero.NewOsFs(),
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
