// Package server hosts the management API: agent registration and builds,
// task submission and lifecycle signals, health probes, and the metrics
// scrape endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/infra/cache"
	"github.com/agentplane/agentplane/engine/infra/monitoring"
	"github.com/agentplane/agentplane/engine/infra/postgres"
	"github.com/agentplane/agentplane/engine/platform"
	"github.com/agentplane/agentplane/engine/state"
	"github.com/agentplane/agentplane/engine/task"
	"github.com/agentplane/agentplane/engine/workflow"
	"github.com/agentplane/agentplane/pkg/config"
	"github.com/agentplane/agentplane/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
)

const (
	httpReadTimeout       = 15 * time.Second
	httpWriteTimeout      = 15 * time.Second
	httpIdleTimeout       = 60 * time.Second
	serverShutdownTimeout = 5 * time.Second
)

// Dependencies carries everything the API surface needs. The server owns
// none of them; the caller wires and closes them.
type Dependencies struct {
	Config     *config.Config
	Monitoring *monitoring.Service
	Store      *postgres.Store
	Cache      *cache.Redis
	Agents     agent.Repository
	Tasks      task.Repository
	States     *state.Service
	Engine     workflow.Engine
	Platform   platform.Platform
	FS         afero.Fs
}

// Server wraps the gin engine and the http.Server lifecycle.
type Server struct {
	config     *config.Config
	monitoring *monitoring.Service
	deps       *Dependencies
	router     *gin.Engine
	httpServer *http.Server
}

// New builds the router and prepares the HTTP listener.
func New(ctx context.Context, deps *Dependencies) (*Server, error) {
	if deps == nil || deps.Config == nil {
		return nil, fmt.Errorf("server: config is required")
	}
	s := &Server{
		config:     deps.Config,
		monitoring: deps.Monitoring,
		deps:       deps,
	}
	s.buildRouter(ctx)
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", deps.Config.Server.Host, deps.Config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  httpReadTimeout,
		WriteTimeout: httpWriteTimeout,
		IdleTimeout:  httpIdleTimeout,
	}
	return s, nil
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until the context is canceled, then drains in-flight
// requests within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	errCh := make(chan error, 1)
	go func() {
		log.Info("API server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("API server stopped")
	return <-errCh
}
