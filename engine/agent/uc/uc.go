// Package uc implements the agent-facing use cases behind the REST
// surface: upload-and-build, lookup, listing, and deletion.
package uc

import (
	"context"
	"fmt"

	"github.com/agentplane/agentplane/engine/agent"
	"github.com/agentplane/agentplane/engine/core"
)

// Config carries the environment the agent use cases need. It is wired
// once at boot from the process configuration.
type Config struct {
	// ContextsPath is the shared volume where uploaded build contexts are
	// staged for the build job.
	ContextsPath string
	// BuildTaskQueue is the queue the build workflow worker polls.
	BuildTaskQueue string
	// TaskQueue is the default queue recorded on new agent rows for task
	// dispatch.
	TaskQueue string
	// AgentsNamespace is where agent workloads run.
	AgentsNamespace string
}

// findAgent resolves an agent by ID when given, otherwise by name. It
// returns (nil, nil) when no matching row exists.
func findAgent(ctx context.Context, repo agent.Repository, id core.ID, name string) (*agent.Agent, error) {
	switch {
	case !id.IsZero():
		return repo.GetByID(ctx, id)
	case name != "":
		return repo.GetByName(ctx, name)
	default:
		return nil, core.NewError(
			fmt.Errorf("agent id or name is required"),
			core.CodeClientError,
			nil,
		)
	}
}

func notFoundError(id core.ID, name string) error {
	details := map[string]any{}
	if !id.IsZero() {
		details["agent_id"] = id.String()
	}
	if name != "" {
		details["name"] = name
	}
	return core.NewError(fmt.Errorf("agent not found"), core.CodeNotFound, details)
}
