package activities

import (
	"context"
	"fmt"

	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/core"
)

const UpdateAgentLabel = "UpdateAgent"

type UpdateAgentInput struct {
	Agent agent.Agent `json:"agent"`
}

// UpdateAgent writes the full agent row back. Build workflows use it to
// record image references and lifecycle transitions in one write.
type UpdateAgent struct {
	agents agent.Repository
}

func NewUpdateAgent(agents agent.Repository) *UpdateAgent {
	return &UpdateAgent{agents: agents}
}

func (a *UpdateAgent) Run(ctx context.Context, input *UpdateAgentInput) (*agent.Agent, error) {
	updated := input.Agent
	if err := a.agents.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("updating agent %s: %w", updated.ID, err)
	}
	return &updated, nil
}

const UpdateAgentStatusLabel = "UpdateAgentStatus"

type UpdateAgentStatusInput struct {
	AgentID core.ID      `json:"agent_id"`
	Status  agent.Status `json:"status"`
	Reason  string       `json:"reason,omitempty"`
}

// UpdateAgentStatus overwrites only the status columns. Task workflows flip
// agents between Active and Idle through this so they never clobber build
// fields written concurrently by UpdateAgent.
type UpdateAgentStatus struct {
	agents agent.Repository
}

func NewUpdateAgentStatus(agents agent.Repository) *UpdateAgentStatus {
	return &UpdateAgentStatus{agents: agents}
}

func (a *UpdateAgentStatus) Run(ctx context.Context, input *UpdateAgentStatusInput) error {
	if err := a.agents.UpdateStatus(ctx, input.AgentID, input.Status, input.Reason); err != nil {
		return fmt.Errorf("updating agent %s status: %w", input.AgentID, err)
	}
	return nil
}
