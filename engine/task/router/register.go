// Package taskrouter exposes the task submission and lifecycle endpoints.
package taskrouter

import (
	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/platform"
	"github.com/agentplane/agentplane/engine/task"
	"github.com/agentplane/agentplane/engine/task/uc"
	"github.com/agentplane/agentplane/engine/workflow"
	"github.com/gin-gonic/gin"
)

// Handler carries the dependencies shared by the task endpoints.
type Handler struct {
	tasks    task.Repository
	agents   agent.Repository
	engine   workflow.Engine
	platform platform.Platform
	states   uc.StateStore
	cfg      *uc.Config
}

func NewHandler(
	tasks task.Repository,
	agents agent.Repository,
	engine workflow.Engine,
	plat platform.Platform,
	states uc.StateStore,
	cfg *uc.Config,
) *Handler {
	return &Handler{
		tasks:    tasks,
		agents:   agents,
		engine:   engine,
		platform: plat,
		states:   states,
		cfg:      cfg,
	}
}

// RegisterRoutes registers all task routes.
func RegisterRoutes(apiBase *gin.RouterGroup, h *Handler) {
	tasks := apiBase.Group("/tasks")
	{
		tasks.POST("", h.createTask)
		tasks.GET("", h.listTasks)
		tasks.GET("/:task_id", h.getTask)
		tasks.DELETE("/:task_id", h.deleteTask)
		tasks.POST("/:task_id/approve", h.approveTask)
		tasks.POST("/:task_id/instruct", h.instructTask)
		tasks.POST("/:task_id/cancel", h.cancelTask)
	}
}
