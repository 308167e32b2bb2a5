package server

import (
	"context"
	"net/http"

	"github.com/agentplane/agentplane/pkg/version"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func (s *Server) registerHealth(r *gin.Engine) {
	r.GET("/healthz", s.livenessHandler())
	r.GET("/readyz", s.readinessHandler())
}

// Liveness endpoint
//
//	@Summary		Liveness probe
//	@Description	Reports that the process is up. Always returns 200 while the server runs.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]any	"Process is alive"
//	@Router			/healthz [get]
func (s *Server) livenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": version.Get().Version,
		})
	}
}

// Readiness endpoint
//
//	@Summary		Readiness probe
//	@Description	Verifies the database and the conversation store are reachable.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]any	"All components ready"
//	@Failure		503	{object}	map[string]any	"One or more components failing"
//	@Router			/readyz [get]
func (s *Server) readinessHandler() gin.HandlerFunc {
	type probe struct {
		name  string
		check func(ctx context.Context) error
	}
	return func(c *gin.Context) {
		probes := make([]probe, 0, 2)
		if s.deps.Store != nil {
			probes = append(probes, probe{name: "database", check: s.deps.Store.HealthCheck})
		}
		if s.deps.Cache != nil {
			probes = append(probes, probe{name: "cache", check: func(ctx context.Context) error {
				return s.deps.Cache.Ping(ctx).Err()
			}})
		}
		// Probes record their outcome instead of failing the group so one
		// broken component does not cancel the remaining checks.
		results := make([]error, len(probes))
		g, ctx := errgroup.WithContext(c.Request.Context())
		for i := range probes {
			g.Go(func() error {
				results[i] = probes[i].check(ctx)
				return nil
			})
		}
		_ = g.Wait()
		components := gin.H{}
		ready := true
		for i := range probes {
			if results[i] != nil {
				components[probes[i].name] = results[i].Error()
				ready = false
			} else {
				components[probes[i].name] = "ok"
			}
		}
		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{
			"status":     state,
			"components": components,
		})
	}
}
