package uc

import (
	"context"
	"fmt"

	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/builder"
	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/platform"
	"github.com/agentplane/agentplane/engine/workflow"
	"github.com/agentplane/agentplane/pkg/logger"
)

// DeleteAgentInput identifies the agent to delete by ID or name.
type DeleteAgentInput struct {
	ID   core.ID
	Name string
}

// DeleteAgent terminates any workflow still running for the agent, reaps
// its platform resources, and removes the row. Tasks referencing the agent
// are removed by the schema's cascade. Platform and workflow cleanup are
// best effort; the row delete is authoritative.
type DeleteAgent struct {
	repo     agent.Repository
	engine   workflow.Engine
	platform platform.Platform
	cfg      *Config
	input    *DeleteAgentInput
}

func NewDeleteAgent(
	repo agent.Repository,
	engine workflow.Engine,
	platform platform.Platform,
	cfg *Config,
	input *DeleteAgentInput,
) *DeleteAgent {
	return &DeleteAgent{repo: repo, engine: engine, platform: platform, cfg: cfg, input: input}
}

func (uc *DeleteAgent) Execute(ctx context.Context) (*agent.Agent, error) {
	log := logger.FromContext(ctx)
	a, err := findAgent(ctx, uc.repo, uc.input.ID, uc.input.Name)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, notFoundError(uc.input.ID, uc.input.Name)
	}
	if err := uc.engine.TerminateWorkflow(ctx, a.ID.String(), "agent deleted"); err != nil {
		log.Debug("No running workflow to terminate for agent", "agent_id", a.ID, "error", err)
	}
	uc.deleteServerResources(ctx, a)
	if err := uc.repo.Delete(ctx, a.ID); err != nil {
		return nil, fmt.Errorf("deleting agent %s: %w", a.ID, err)
	}
	log.Info("Agent deleted", "agent_id", a.ID, "name", a.Name)
	return a, nil
}

func (uc *DeleteAgent) deleteServerResources(ctx context.Context, a *agent.Agent) {
	log := logger.FromContext(ctx)
	name := builder.ServerName(a.Name)
	ns := uc.cfg.AgentsNamespace
	if err := uc.platform.DeletePodDisruptionBudget(ctx, ns, name); err != nil {
		log.Warn("Failed to delete agent pod disruption budget", "agent_id", a.ID, "error", err)
	}
	if err := uc.platform.DeleteService(ctx, ns, name); err != nil {
		log.Warn("Failed to delete agent service", "agent_id", a.ID, "error", err)
	}
	if err := uc.platform.DeleteDeployment(ctx, ns, name); err != nil {
		log.Warn("Failed to delete agent deployment", "agent_id", a.ID, "error", err)
	}
}
