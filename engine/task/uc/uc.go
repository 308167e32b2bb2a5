// Package uc implements the task-facing use cases behind the REST
// surface: submission, read-through status, the human-gate signals, and
// cancellation.
package uc

import (
	"context"
	"fmt"

	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/state"
	"github.com/agentplane/agentplane/engine/task"
)

// Config carries the environment the task use cases need.
type Config struct {
	// AgentsNamespace is where agent services are reachable for the
	// agent-spec fetch at submission time.
	AgentsNamespace string
	// TaskQueue is the fallback dispatch queue for agent rows that predate
	// queue assignment.
	TaskQueue string
}

// StateStore is the slice of the conversational state service the task
// use cases need: whole-blob reads for task views and deletes for task
// removal.
type StateStore interface {
	Get(ctx context.Context, taskID core.ID) (*state.AgentState, error)
	Delete(ctx context.Context, taskID core.ID) error
}

// mustGetTask loads a task row and converts absence into NOT_FOUND.
func mustGetTask(ctx context.Context, repo task.Repository, id core.ID) (*task.Task, error) {
	t, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	if t == nil {
		return nil, core.NewError(
			fmt.Errorf("task not found"),
			core.CodeNotFound,
			map[string]any{"task_id": id.String()},
		)
	}
	return t, nil
}
