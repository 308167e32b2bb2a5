package server

import (
	"context"

	agentuc "github.com/agentplane/agentplane/engine/agent/uc"
	lgmiddleware "github.com/agentplane/agentplane/engine/infra/server/middleware/logger"
	taskuc "github.com/agentplane/agentplane/engine/task/uc"
	"github.com/agentplane/agentplane/pkg/logger"
	"github.com/gin-gonic/gin"

	agentrouter "github.com/agentplane/agentplane/engine/agent/router"
	taskrouter "github.com/agentplane/agentplane/engine/task/router"
)

func (s *Server) buildRouter(ctx context.Context) {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.monitoring != nil && s.monitoring.IsInitialized() {
		r.Use(s.monitoring.GinMiddleware(ctx))
	}
	r.Use(lgmiddleware.Middleware(ctx))
	if s.monitoring != nil && s.monitoring.IsInitialized() {
		r.GET(s.monitoring.Path(), gin.WrapH(s.monitoring.ExporterHandler()))
	}
	s.registerHealth(r)
	s.registerRoutes(r)
	s.router = r
	s.logStartupBanner(ctx)
}

func (s *Server) registerRoutes(r *gin.Engine) {
	cfg := s.config
	apiV0 := r.Group("/api/v0")
	agentrouter.RegisterRoutes(apiV0, agentrouter.NewHandler(
		s.deps.Agents,
		s.deps.Engine,
		s.deps.Platform,
		s.deps.FS,
		&agentuc.Config{
			ContextsPath:    cfg.Build.ContextsPath,
			BuildTaskQueue:  cfg.Temporal.BuildTaskQueue,
			TaskQueue:       cfg.Temporal.TaskQueue,
			AgentsNamespace: cfg.Agents.Namespace,
		},
	))
	taskrouter.RegisterRoutes(apiV0, taskrouter.NewHandler(
		s.deps.Tasks,
		s.deps.Agents,
		s.deps.Engine,
		s.deps.Platform,
		s.deps.States,
		&taskuc.Config{
			AgentsNamespace: cfg.Agents.Namespace,
			TaskQueue:       cfg.Temporal.TaskQueue,
		},
	))
}

func (s *Server) logStartupBanner(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info(
		"API routes registered",
		"host", s.config.Server.Host,
		"port", s.config.Server.Port,
		"base_path", "/api/v0",
		"monitoring_enabled", s.monitoring != nil && s.monitoring.IsInitialized(),
	)
}
