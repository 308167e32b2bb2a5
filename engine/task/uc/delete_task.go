package uc

import (
	"context"
	"fmt"

	"github.com/agentplane/agentplane/engine/core"
	"github.com/agentplane/agentplane/engine/task"
	"github.com/agentplane/agentplane/engine/workflow"
	"github.com/agentplane/agentplane/pkg/logger"
)

// DeleteTask terminates the task's workflow, removes its conversational
// state, and deletes the row. Workflow and state cleanup are best effort.
type DeleteTask struct {
	tasks  task.Repository
	engine workflow.Engine
	states StateStore
	taskID core.ID
}

func NewDeleteTask(tasks task.Repository, engine workflow.Engine, states StateStore, taskID core.ID) *DeleteTask {
	return &DeleteTask{tasks: tasks, engine: engine, states: states, taskID: taskID}
}

func (uc *DeleteTask) Execute(ctx context.Context) error {
	log := logger.FromContext(ctx)
	t, err := mustGetTask(ctx, uc.tasks, uc.taskID)
	if err != nil {
		return err
	}
	if err := uc.engine.TerminateWorkflow(ctx, t.ID.String(), "task deleted"); err != nil {
		log.Debug("No running workflow to terminate for task", "task_id", t.ID, "error", err)
	}
	if uc.states != nil {
		if err := uc.states.Delete(ctx, t.ID); err != nil {
			log.Warn("Failed to delete conversational state", "task_id", t.ID, "error", err)
		}
	}
	if err := uc.tasks.Delete(ctx, t.ID); err != nil {
		return fmt.Errorf("deleting task %s: %w", t.ID, err)
	}
	log.Info("Task deleted", "task_id", t.ID)
	return nil
}
