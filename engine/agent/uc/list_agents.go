package uc

import (
	"context"
	"fmt"

	"github.com/agentplane/agentplane/engine/agent"
)

// ListAgents retrieves all agents, newest first.
type ListAgents struct {
	repo agent.Repository
}

func NewListAgents(repo agent.Repository) *ListAgents {
	return &ListAgents{repo: repo}
}

func (uc *ListAgents) Execute(ctx context.Context) ([]agent.Agent, error) {
	agents, err := uc.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	return agents, nil
}
