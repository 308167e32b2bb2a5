// Package agentrouter exposes the agent management endpoints.
package agentrouter

import (
	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/agent/uc"
	"github.com/agentplane/agentplane/engine/platform"
	"github.com/agentplane/agentplane/engine/workflow"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
)

// Handler carries the dependencies shared by the agent endpoints.
type Handler struct {
	agents   agent.Repository
	engine   workflow.Engine
	platform platform.Platform
	fs       afero.Fs
	cfg      *uc.Config
}

func NewHandler(
	agents agent.Repository,
	engine workflow.Engine,
	plat platform.Platform,
	fs afero.Fs,
	cfg *uc.Config,
) *Handler {
	return &Handler{agents: agents, engine: engine, platform: plat, fs: fs, cfg: cfg}
}

// RegisterRoutes registers all agent routes.
func RegisterRoutes(apiBase *gin.RouterGroup, h *Handler) {
	agents := apiBase.Group("/agents")
	{
		agents.POST("", h.createAgent)
		agents.GET("", h.listAgents)
		agents.GET("/:agent_ref", h.getAgent)
		agents.DELETE("/:agent_ref", h.deleteAgent)
	}
}
