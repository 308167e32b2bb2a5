package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	agentpg "github.com/agentplane/agentplane/engine/agent/infra/postgres"
	"github.com/agentplane/agentplane/engine/infra/cache"
	"github.com/agentplane/agentplane/engine/infra/kube"
	"github.com/agentplane/agentplane/engine/infra/monitoring"
	"github.com/agentplane/agentplane/engine/infra/postgres"
	"github.com/agentplane/agentplane/engine/llm"
	"github.com/agentplane/agentplane/engine/state"
	"github.com/agentplane/agentplane/engine/worker"
	"github.com/agentplane/agentplane/pkg/config"
	"github.com/agentplane/agentplane/pkg/logger"
	"github.com/spf13/cobra"
)

const workerStopTimeout = 30 * time.Second

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the workflow worker host",
		Long: "Runs the build and task workflow workers on their queues and " +
			"serves the health endpoints the platform probes.",
		RunE: runWorker,
	}
}

func runWorker(cmd *cobra.Command, _ []string) error {
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

	clientset, err := kube.NewClientset(&kube.Config{Kubeconfig: cfg.Agents.Kubeconfig})
	if err != nil {
		return fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	gateway, err := llm.NewOpenAIGateway(&llm.OpenAIConfig{APIKey: cfg.OpenAI.APIKey})
	if err != nil {
		return fmt.Errorf("failed to create llm gateway: %w", err)
	}

	states := state.NewService(
		state.NewRedisRepository(redisClient),
		state.WithLockManager(cache.NewLockManager(redisClient)),
	)

	host, err := worker.New(ctx, &worker.Dependencies{
		Config:     cfg,
		Agents:     agentpg.NewRepository(store.Pool()),
		Platform:   kube.New(clientset),
		States:     states,
		Gateway:    gateway,
		Monitoring: monitor,
	})
	if err != nil {
		return err
	}
	if err := host.Setup(ctx); err != nil {
		return err
	}
	log.Info("Worker host running; send SIGINT or SIGTERM to stop")
	<-ctx.Done()

	stopCtx, cancelStop := context.WithTimeout(context.WithoutCancel(ctx), workerStopTimeout)
	defer cancelStop()
	host.Stop(stopCtx)
	return nil
}
