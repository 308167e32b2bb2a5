package uc

import (
	"context"
	"fmt"

	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/llm"
	"github.com/agentplane/agentplane/engine/task"
	"github.com/agentplane/agentplane/engine/workflow"
	"github.com/agentplane/agentplane/pkg/logger"
)

// GetTaskOutput is the task view returned by the API: the row, the
// workflow state it reflects, and the conversation so far.
type GetTaskOutput struct {
	task.Task
	State    *workflow.State `json:"state,omitempty"`
	Messages []llm.Message   `json:"messages"`
	Context  map[string]any  `json:"context,omitempty"`
}

// GetTask reads a task with read-through semantics: while the stored
// status is non-terminal it asks the workflow engine for the current
// state and persists any change, so reads are monotonic once a terminal
// state is observed.
type GetTask struct {
	tasks  task.Repository
	engine workflow.Engine
	states StateStore
	taskID core.ID
}

func NewGetTask(tasks task.Repository, engine workflow.Engine, states StateStore, taskID core.ID) *GetTask {
	return &GetTask{tasks: tasks, engine: engine, states: states, taskID: taskID}
}

func (uc *GetTask) Execute(ctx context.Context) (*GetTaskOutput, error) {
	t, err := mustGetTask(ctx, uc.tasks, uc.taskID)
	if err != nil {
		return nil, err
	}
	var wfState *workflow.State
	if !t.IsTerminal() {
		wfState, err = uc.refreshStatus(ctx, t)
		if err != nil {
			return nil, err
		}
	} else {
		wfState = workflow.StateFor(workflow.Status(*t.Status))
	}
	out := &GetTaskOutput{Task: *t, State: wfState, Messages: []llm.Message{}}
	if uc.states != nil {
		agentState, err := uc.states.Get(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("loading conversation for task %s: %w", t.ID, err)
		}
		out.Messages = agentState.Messages
		out.Context = agentState.Context
	}
	return out, nil
}

func (uc *GetTask) refreshStatus(ctx context.Context, t *task.Task) (*workflow.State, error) {
	wfState, err := uc.engine.GetWorkflowStatus(ctx, t.ID.String())
	if err != nil {
		return nil, fmt.Errorf("querying workflow state for task %s: %w", t.ID, err)
	}
	status := string(wfState.Status)
	if t.Status != nil && *t.Status == status {
		return wfState, nil
	}
	if err := uc.tasks.UpdateStatus(ctx, t.ID, status, wfState.Reason); err != nil {
		// The row may have been deleted between the read and the update;
		// the view we already loaded is still worth returning.
		logger.FromContext(ctx).Warn("Failed to persist task status", "task_id", t.ID, "error", err)
	}
	t.SetStatus(status, wfState.Reason)
	return wfState, nil
}
