package uc

import (
	"context"

	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/core"
)

// GetAgentInput identifies an agent by ID or, when ID is empty, by name.
type GetAgentInput struct {
	ID   core.ID
	Name string
}

// GetAgent retrieves a single agent.
type GetAgent struct {
	repo  agent.Repository
	input *GetAgentInput
}

func NewGetAgent(repo agent.Repository, input *GetAgentInput) *GetAgent {
	return &GetAgent{repo: repo, input: input}
}

func (uc *GetAgent) Execute(ctx context.Context) (*agent.Agent, error) {
	a, err := findAgent(ctx, uc.repo, uc.input.ID, uc.input.Name)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, notFoundError(uc.input.ID, uc.input.Name)
	}
	return a, nil
}
