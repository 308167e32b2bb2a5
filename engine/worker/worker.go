// Package worker hosts the build and task workflows and every activity
// they call. One process runs two Temporal workers, one per task queue,
// sharing a single client connection and activity dependencies.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"

	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/builder"
	"github.com/agentplane/agentplane/engine/infra/monitoring"
	"github.com/agentplane/agentplane/engine/infra/temporal"
	"github.com/agentplane/agentplane/engine/llm"
	"github.com/agentplane/agentplane/engine/platform"
	"github.com/agentplane/agentplane/engine/state"
	"github.com/agentplane/agentplane/pkg/config"
	"github.com/agentplane/agentplane/pkg/logger"
)

// Dependencies carries the backends activities reach out to. The worker
// host owns none of them; the caller wires and closes them.
type Dependencies struct {
	Config     *config.Config
	Agents     agent.Repository
	Platform   platform.Platform
	States     *state.Service
	Gateway    llm.Gateway
	Monitoring *monitoring.Service
}

// Worker runs the build and task workers plus the liveness endpoint the
// platform probes.
type Worker struct {
	engine     *temporal.Engine
	builds     worker.Worker
	tasks      worker.Worker
	activities *Activities
	monitoring *monitoring.Service
	health     *http.Server
	identity   string
	started    atomic.Bool
}

// New dials Temporal and prepares both workers. The process identity is
// unique per boot so the engine can attribute task progress to a worker
// instance.
func New(ctx context.Context, deps *Dependencies) (*Worker, error) {
	cfg := deps.Config
	log := logger.FromContext(ctx)
	identity := fmt.Sprintf("agentplane-worker-%s", uuid.NewString())
	engine, err := temporal.New(&temporal.Config{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Identity:  identity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create worker client: %w", err)
	}

	activities := NewActivities(
		deps.Agents,
		deps.Platform,
		deps.States,
		deps.Gateway,
		&builder.Config{
			RegistryURL:        cfg.Build.RegistryURL,
			ContextsPath:       cfg.Build.ContextsPath,
			ContextPVCName:     cfg.Build.ContextPVCName,
			RegistrySecretName: cfg.Build.RegistrySecretName,
		},
		cfg.Agents.Namespace,
	)

	w := &Worker{
		engine:     engine,
		activities: activities,
		monitoring: deps.Monitoring,
		identity:   identity,
	}
	options := worker.Options{
		MaxConcurrentActivityExecutionSize: cfg.Worker.MaxActivitiesPerWorker,
		MaxConcurrentActivityTaskPollers:   cfg.Worker.ActivityThreadPoolSize,
		OnFatalError: func(err error) {
			w.started.Store(false)
			log.Error("Worker stopped on fatal error", "identity", identity, "error", err)
		},
	}
	if deps.Monitoring != nil {
		options.Interceptors = []interceptor.WorkerInterceptor{deps.Monitoring.TemporalInterceptor(ctx)}
	}
	w.builds = engine.NewWorker(cfg.Temporal.BuildTaskQueue, options)
	w.tasks = engine.NewWorker(cfg.Temporal.TaskQueue, options)
	w.health = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Worker.HealthPort),
		Handler: w.healthRouter(),
	}
	return w, nil
}

// Setup registers workflows and activities and starts both workers and
// the health listener. Liveness reports ready only after both workers
// poll their queues.
func (w *Worker) Setup(ctx context.Context) error {
	log := logger.FromContext(ctx)
	w.builds.RegisterWorkflow(BuildAgentWorkflow)
	w.tasks.RegisterWorkflow(RunAgentTaskWorkflow)
	w.registerActivities(w.builds)
	w.registerActivities(w.tasks)

	if err := w.builds.Start(); err != nil {
		return fmt.Errorf("failed to start build worker: %w", err)
	}
	if err := w.tasks.Start(); err != nil {
		w.builds.Stop()
		return fmt.Errorf("failed to start task worker: %w", err)
	}
	w.started.Store(true)

	go func() {
		if err := w.health.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Worker health listener failed", "error", err)
		}
	}()
	log.Info("Worker started", "identity", w.identity)
	return nil
}

// Stop drains both workers, then the shared connection and the health
// listener.
func (w *Worker) Stop(ctx context.Context) {
	log := logger.FromContext(ctx)
	w.started.Store(false)
	w.tasks.Stop()
	w.builds.Stop()
	w.engine.Close()
	if err := w.health.Shutdown(ctx); err != nil {
		log.Error("Failed to shutdown worker health listener", "error", err)
	}
}

// Engine exposes the shared connection for signal and query operations.
func (w *Worker) Engine() *temporal.Engine {
	return w.engine
}

func (w *Worker) registerActivities(wk worker.Worker) {
	wk.RegisterActivity(w.activities.UpdateAgent)
	wk.RegisterActivity(w.activities.UpdateAgentStatus)
	wk.RegisterActivity(w.activities.BuildAndPush)
	wk.RegisterActivity(w.activities.GetBuildJob)
	wk.RegisterActivity(w.activities.DeleteBuildJob)
	wk.RegisterActivity(w.activities.CreateAgentDeployment)
	wk.RegisterActivity(w.activities.GetAgentDeployment)
	wk.RegisterActivity(w.activities.DeleteAgentDeployment)
	wk.RegisterActivity(w.activities.CreateAgentService)
	wk.RegisterActivity(w.activities.GetAgentService)
	wk.RegisterActivity(w.activities.DeleteAgentService)
	wk.RegisterActivity(w.activities.CreateAgentPodDisruptionBudget)
	wk.RegisterActivity(w.activities.InitTaskState)
	wk.RegisterActivity(w.activities.DecideAction)
	wk.RegisterActivity(w.activities.TakeAction)
	wk.RegisterActivity(w.activities.AppendInstruction)
}

func (w *Worker) healthRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", func(c *gin.Context) {
		if !w.started.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if w.monitoring != nil {
		router.GET("/metrics", gin.WrapH(w.monitoring.ExporterHandler()))
	} else {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	return router
}
